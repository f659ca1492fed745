package domain

// 每个文档输出目录下的固定产物文件名。
const (
	FileInputsJSON = "inputs.json"
	FileInputsText = "game_inputs.txt"
	FileLuaScript  = "document_player.lua"
)

// OutputFiles 返回产物文件名（写入顺序固定：先数据，后脚本）。
func OutputFiles() []string {
	return []string{FileInputsJSON, FileInputsText, FileLuaScript}
}

// OutState 描述 <out>/<slug>/ 的现状（只做 ReadDir + 读取缓存状态，不读产物内容）。
type OutState struct {
	OutDir string

	HasJSON bool
	HasText bool
	HasLua  bool

	// State 是上一次成功生成时记录的状态；nil 表示没有记录或记录损坏。
	State *GenState
}

// Complete 表示三个产物都已存在。
func (s OutState) Complete() bool { return s.HasJSON && s.HasText && s.HasLua }

// GenState 是写入 cache/state/<slug>.json 的生成记录，用于判断产物是否过期。
type GenState struct {
	Source     string `json:"source"`
	Size       int64  `json:"size"`
	ModUnix    int64  `json:"mod_unix"`
	System     System `json:"system"`
	Name       string `json:"name"`
	Timing     Timing `json:"timing"`
	Inputs     int    `json:"inputs"`
	SourceHash string `json:"source_sha256"`
}

// Fresh 报告记录的元数据是否与本次一致；内容 hash 由调用方另行核对。
func (g *GenState) Fresh(doc Document, sys System, name string, t Timing) bool {
	if g == nil {
		return false
	}
	return g.Size == doc.Size &&
		g.ModUnix == doc.ModUnix &&
		g.System == sys &&
		g.Name == name &&
		g.Timing == t
}
