package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cache "github.com/sidifa/querycache"
	"github.com/sidifa/querycache/freshness"
	"github.com/sidifa/querycache/sidifa"
)

// ResourceRoute serves one cached SI-DIFA collection under /api/v1/<name>.
type ResourceRoute[T any] struct {
	resource *sidifa.Resource[T]
}

// NewResourceRoute wraps resource in gin handlers.
func NewResourceRoute[T any](resource *sidifa.Resource[T]) *ResourceRoute[T] {
	return &ResourceRoute[T]{resource: resource}
}

func (route *ResourceRoute[T]) RegisterRouter(router *gin.RouterGroup) {
	group := router.Group(route.resource.Name())
	group.GET("", route.List)
	group.POST("", route.Create)
	group.GET(":id", route.Get)
	group.PUT(":id", route.Update)
	group.DELETE(":id", route.Delete)
}

func (route *ResourceRoute[T]) List(reqCtx *gin.Context) {
	params, ok := listParams(reqCtx, route.resource.Filters())
	if !ok {
		return
	}

	res, err := route.resource.List(reqCtx.Request.Context(), params)
	if err != nil {
		abortWithError(reqCtx, err)
		return
	}

	page := res.Value
	// The API may leave paging out of the envelope; echo what was asked for.
	if page.Page <= 0 {
		page.Page = params.Page
	}
	if page.Limit <= 0 {
		page.Limit = params.Limit
	}

	reqCtx.Header(HeaderCache, string(res.Status))
	reqCtx.JSON(http.StatusOK, ListResponse[T]{
		Status:  ResponseCodeOk,
		Total:   page.Total,
		Page:    page.Page,
		Limit:   page.Limit,
		HasMore: int64(page.Page*page.Limit) < page.Total,
		Results: page.Data,
	})
}

func (route *ResourceRoute[T]) Get(reqCtx *gin.Context) {
	res, err := route.resource.Get(reqCtx.Request.Context(), reqCtx.Param("id"))
	if err != nil {
		abortWithError(reqCtx, err)
		return
	}

	reqCtx.Header(HeaderCache, string(res.Status))
	reqCtx.JSON(http.StatusOK, GeneralResponse[T]{
		Status: ResponseCodeOk,
		Result: res.Value,
	})
}

func (route *ResourceRoute[T]) Create(reqCtx *gin.Context) {
	var body T
	if err := reqCtx.ShouldBindJSON(&body); err != nil {
		abortBadRequest(reqCtx, err)
		return
	}

	created, err := route.resource.Create(reqCtx.Request.Context(), body)
	if err != nil {
		abortWithError(reqCtx, err)
		return
	}
	reqCtx.JSON(http.StatusCreated, GeneralResponse[T]{
		Status: ResponseCodeOk,
		Result: created,
	})
}

func (route *ResourceRoute[T]) Update(reqCtx *gin.Context) {
	var body T
	if err := reqCtx.ShouldBindJSON(&body); err != nil {
		abortBadRequest(reqCtx, err)
		return
	}

	updated, err := route.resource.Update(reqCtx.Request.Context(), reqCtx.Param("id"), body)
	if err != nil {
		abortWithError(reqCtx, err)
		return
	}
	reqCtx.JSON(http.StatusOK, GeneralResponse[T]{
		Status: ResponseCodeOk,
		Result: updated,
	})
}

func (route *ResourceRoute[T]) Delete(reqCtx *gin.Context) {
	if err := route.resource.Delete(reqCtx.Request.Context(), reqCtx.Param("id")); err != nil {
		abortWithError(reqCtx, err)
		return
	}
	reqCtx.Status(http.StatusNoContent)
}

// DashboardRoute serves GET /api/v1/dashboard/stats.
type DashboardRoute struct {
	dashboard *sidifa.Dashboard
}

// NewDashboardRoute wraps the dashboard reads in a gin handler.
func NewDashboardRoute(dashboard *sidifa.Dashboard) *DashboardRoute {
	return &DashboardRoute{dashboard: dashboard}
}

func (route *DashboardRoute) RegisterRouter(router *gin.RouterGroup) {
	router.GET("dashboard/stats", route.Stats)
}

func (route *DashboardRoute) Stats(reqCtx *gin.Context) {
	res, err := route.dashboard.Stats(reqCtx.Request.Context(), reqCtx.Query("role"))
	if err != nil {
		abortWithError(reqCtx, err)
		return
	}

	reqCtx.Header(HeaderCache, string(res.Status))
	reqCtx.JSON(http.StatusOK, GeneralResponse[sidifa.DashboardStats]{
		Status: ResponseCodeOk,
		Result: res.Value,
	})
}

// DebugRoute exposes the cache state and manual invalidation.
type DebugRoute struct {
	cache *cache.QueryCache
}

// NewDebugRoute exposes qc under /debug.
func NewDebugRoute(qc *cache.QueryCache) *DebugRoute {
	return &DebugRoute{cache: qc}
}

func (route *DebugRoute) RegisterRouter(router *gin.RouterGroup) {
	group := router.Group("debug")
	group.GET("cache", route.Stats)
	group.GET("cache/keys", route.Keys)
	group.GET("cache/entry", route.Entry)
	group.DELETE("cache", route.Invalidate)
}

func (route *DebugRoute) Stats(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, GeneralResponse[cache.Stats]{
		Status: ResponseCodeOk,
		Result: route.cache.Stats(),
	})
}

func (route *DebugRoute) Keys(reqCtx *gin.Context) {
	keys := route.cache.Keys(reqCtx.Query("prefix"))
	if keys == nil {
		keys = []string{}
	}
	reqCtx.JSON(http.StatusOK, ListResponse[string]{
		Status:  ResponseCodeOk,
		Total:   int64(len(keys)),
		Results: keys,
	})
}

// Entry describes one cached key without counting as a read.
func (route *DebugRoute) Entry(reqCtx *gin.Context) {
	key := reqCtx.Query("key")
	ent, ok := route.cache.Peek(key)
	if !ok {
		reqCtx.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Code:  CodeUnknownTarget,
			Error: "key not cached",
		})
		return
	}

	now := route.cache.Engine().Now()
	reqCtx.JSON(http.StatusOK, GeneralResponse[EntryInfo]{
		Status: ResponseCodeOk,
		Result: EntryInfo{
			Key:       ent.Key,
			StoredAt:  ent.StoredAt,
			Age:       ent.Age(now).String(),
			Window:    ent.Window.String(),
			Fresh:     freshness.IsFresh(&ent, now, 0),
			Remaining: freshness.Remaining(&ent, now, 0).String(),
		},
	})
}

// Invalidate handles DELETE /debug/cache?key=<exact> or ?prefix=<prefix>.
// Clearing everything takes an explicit empty prefix (?prefix=).
func (route *DebugRoute) Invalidate(reqCtx *gin.Context) {
	if key := reqCtx.Query("key"); key != "" {
		removed := 0
		if _, ok := route.cache.Peek(key); ok {
			removed = 1
		}
		route.cache.Remove(key)
		reqCtx.JSON(http.StatusOK, GeneralResponse[InvalidationResult]{
			Status: ResponseCodeOk,
			Result: InvalidationResult{Target: key, Removed: removed},
		})
		return
	}

	prefix, ok := reqCtx.GetQuery("prefix")
	if !ok {
		reqCtx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Code:  CodeUnknownTarget,
			Error: "either key or prefix is required",
		})
		return
	}
	reqCtx.JSON(http.StatusOK, GeneralResponse[InvalidationResult]{
		Status: ResponseCodeOk,
		Result: InvalidationResult{Target: prefix, Prefix: true, Removed: route.cache.RemoveByPrefix(prefix)},
	})
}

// listParams reads page, limit, search and the allowed filters from the query string.
func listParams(reqCtx *gin.Context, filters []string) (sidifa.ListParams, bool) {
	params := sidifa.ListParams{Search: reqCtx.Query("search")}

	for name, dst := range map[string]*int{"page": &params.Page, "limit": &params.Limit} {
		raw := reqCtx.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			abortBadRequest(reqCtx, errors.New(name+" must be a number"))
			return params, false
		}
		*dst = n
	}

	for _, name := range filters {
		if v := reqCtx.Query(name); v != "" {
			if params.Filters == nil {
				params.Filters = make(map[string]string, len(filters))
			}
			params.Filters[name] = v
		}
	}
	return params.Normalize(), true
}

func abortBadRequest(reqCtx *gin.Context, err error) {
	reqCtx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:          CodeBadRequest,
		Error:         err.Error(),
		ErrorInstance: err,
	})
}

// abortWithError maps a read or write failure to a response: API errors keep
// their status, timeouts are 504 and any other failure is 502.
func abortWithError(reqCtx *gin.Context, err error) {
	_ = reqCtx.Error(err)

	var apiErr *sidifa.APIError
	switch {
	case errors.As(err, &apiErr):
		reqCtx.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
			Code:          CodeUpstream,
			Error:         apiErr.Message,
			ErrorInstance: err,
		})
	case errors.Is(err, context.DeadlineExceeded):
		reqCtx.AbortWithStatusJSON(http.StatusGatewayTimeout, ErrorResponse{
			Code:          CodeTimeout,
			Error:         err.Error(),
			ErrorInstance: err,
		})
	default:
		reqCtx.AbortWithStatusJSON(http.StatusBadGateway, ErrorResponse{
			Code:          CodeUnavailable,
			Error:         err.Error(),
			ErrorInstance: err,
		})
	}
}
