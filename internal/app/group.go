package app

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/John-Robertt/GameScript/internal/docname"
	"github.com/John-Robertt/GameScript/internal/domain"
)

// GroupBySlug 把文档按输出 slug 归组为 WorkItem（WorkItem 只存 doc index）。
//
// - 一个 slug 只对应一个文档；多个文档撞到同一 slug 时全部进入 conflicts，且都不处理
// - 文件名推导不出 slug 的文档进入 conflicts（Kind=invalid_name）
// - items 稳定排序：按 Slug 字典序；conflicts 按 RelPath 字典序
func GroupBySlug(docs []domain.Document) (items []domain.WorkItem, conflicts []domain.Conflict, err error) {
	bySlug := make(map[domain.Slug][]int, len(docs))
	conflicts = make([]domain.Conflict, 0, 8)

	for i := range docs {
		s, e := docname.Slug(docs[i].Base)
		if e != nil {
			var se *docname.EmptySlugError
			if errors.As(e, &se) {
				conflicts = append(conflicts, domain.Conflict{
					Doc:  docs[i],
					Kind: domain.ConflictInvalidName,
				})
				continue
			}
			return nil, nil, e
		}
		bySlug[s] = append(bySlug[s], i)
	}

	items = make([]domain.WorkItem, 0, len(bySlug))
	for s, idx := range bySlug {
		if len(idx) == 1 {
			items = append(items, domain.WorkItem{Slug: s, DocIdx: idx[0]})
			continue
		}
		for _, i := range idx {
			peers := make([]string, 0, len(idx)-1)
			for _, j := range idx {
				if j != i {
					peers = append(peers, docs[j].RelPath)
				}
			}
			sort.Strings(peers)
			conflicts = append(conflicts, domain.Conflict{
				Doc:   docs[i],
				Kind:  domain.ConflictSlugCollision,
				Slug:  s,
				Peers: peers,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Slug < items[j].Slug })
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Doc.RelPath < conflicts[j].Doc.RelPath
	})
	return items, conflicts, nil
}
