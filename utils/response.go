package utils

import (
	"github.com/kataras/iris/v12"
)

// PageMeta is the paging block attached to list responses.
type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
}

// JSONPage writes one page of results plus the metadata list consumers
// page on.
func JSONPage(ctx iris.Context, data interface{}, page, perPage int, total int64) {
	if perPage < 1 {
		perPage = 1
	}
	pages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		pages++
	}
	ctx.JSON(iris.Map{
		"data": data,
		"meta": PageMeta{Page: page, PerPage: perPage, Total: total, Pages: pages},
	})
}
