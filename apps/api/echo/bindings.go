package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/invigilo/invigilo/core/entity"
)

// Query parameter names of the listing endpoints.
const (
	pageNumberParam = "page_number"
	pageSizeParam   = "page_size"
	sortParam       = "sort"
	idsParam        = "ids"
)

// bindPage reads pagination parameters off the request and sanitizes
// them against the configured page-size bounds.
func bindPage(ctx echo.Context) entity.PageRequest {
	number, _ := strconv.Atoi(ctx.QueryParam(pageNumberParam))
	size, _ := strconv.Atoi(ctx.QueryParam(pageSizeParam))
	return entity.SanitizePage(number, size, ctx.QueryParam(sortParam))
}

// bindFilter exposes the full query string as a typed filter map.
func bindFilter(ctx echo.Context) entity.FilterMap {
	return entity.FilterMapOf(ctx.QueryParams())
}

// bindModelIDs reads the ids parameter of list requests. Both repeated
// parameters and comma-separated values are accepted.
func bindModelIDs(ctx echo.Context) []string {
	var ids []string
	for _, raw := range ctx.QueryParams()[idsParam] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
