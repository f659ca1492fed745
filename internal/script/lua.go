package script

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/domain"
)

//go:embed player.lua.tmpl
var playerTemplate string

var luaTmpl = template.Must(template.New("player").
	Funcs(template.FuncMap{"lua": luaQuote}).
	Parse(playerTemplate))

// joypadKeys 是按键名到模拟器 joypad 表键名的映射（按 domain.Buttons 的顺序输出）。
var joypadKeys = map[domain.System]map[domain.Button]string{
	domain.SystemDS: {
		domain.ButtonUp: "up", domain.ButtonDown: "down", domain.ButtonLeft: "left", domain.ButtonRight: "right",
		domain.ButtonA: "A", domain.ButtonB: "B", domain.ButtonStart: "start", domain.ButtonSelect: "select",
		domain.ButtonL: "L", domain.ButtonR: "R",
	},
	// gb 没有肩键；映射表也从不产生 L/R。
	domain.SystemGB: {
		domain.ButtonUp: "up", domain.ButtonDown: "down", domain.ButtonLeft: "left", domain.ButtonRight: "right",
		domain.ButtonA: "A", domain.ButtonB: "B", domain.ButtonStart: "start", domain.ButtonSelect: "select",
	},
}

type keyEntry struct {
	Button string
	Key    string
}

type luaData struct {
	Name      string
	Source    string
	System    string
	Label     string
	InputFile string
	Hold      int
	Gap       int
	Total     int
	Pressed   int
	Keys      []keyEntry
	// SetPrefix 是 joypad.set 的前置参数：DeSmuME 只有一个手柄，VBA 需要手柄编号。
	SetPrefix string
}

// EncodeLua 生成 document_player.lua。
//
// 脚本在运行时读取同目录下的 InputFile（默认 game_inputs.txt），逐个回放：
// 按键按住 HoldFrames 帧，再松开 GapFrames 帧；NO_INPUT 只等待，不按任何键。
func EncodeLua(meta domain.ScriptMeta) ([]byte, error) {
	keys, ok := joypadKeys[meta.System]
	if !ok {
		return nil, errors.Newf("不支持的 system：%q", meta.System)
	}
	if meta.Timing.HoldFrames < 1 || meta.Timing.GapFrames < 0 {
		return nil, errors.Newf("非法回放节奏：hold_frames=%d gap_frames=%d", meta.Timing.HoldFrames, meta.Timing.GapFrames)
	}
	inputFile := strings.TrimSpace(meta.InputFile)
	if inputFile == "" {
		inputFile = domain.FileInputsText
	}

	d := luaData{
		Name:      meta.Name,
		Source:    meta.Source,
		System:    string(meta.System),
		Label:     meta.System.Label(),
		InputFile: inputFile,
		Hold:      meta.Timing.HoldFrames,
		Gap:       meta.Timing.GapFrames,
		Total:     len(meta.Inputs),
		Pressed:   meta.Inputs.Pressed(),
	}
	if meta.System == domain.SystemGB {
		d.SetPrefix = "1, "
	}
	for _, b := range domain.Buttons() {
		if k, ok := keys[b]; ok {
			d.Keys = append(d.Keys, keyEntry{Button: string(b), Key: k})
		}
	}

	var buf bytes.Buffer
	if err := luaTmpl.Execute(&buf, d); err != nil {
		return nil, errors.Wrap(err, "渲染 Lua 脚本")
	}
	return buf.Bytes(), nil
}

// luaQuote 把任意字符串编码为 Lua 双引号字符串字面量。
// 控制字符用十进制转义（\ddd）；其余字节原样保留（Lua 字符串是字节串）。
func luaQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				// 固定三位，避免后面紧跟数字时被 Lua 误读。
				fmt.Fprintf(&b, `\%03d`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
