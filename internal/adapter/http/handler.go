package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"cachequest/internal/app/persistence"
	"cachequest/internal/app/ports"
	"cachequest/internal/app/session"
	"cachequest/internal/domain/cache"
	"cachequest/internal/domain/grid"
	"cachequest/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

var ErrInvalidRequest = errors.New("invalid request")

type Handler struct {
	Session     *session.Controller
	KPI         kpiSnapshotProvider
	CORSOrigins []string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(h.CORSOrigins))

	w := s.Group("/api/world")
	w.GET("/view", h.view)
	w.GET("/cells", h.cells)
	w.GET("/caches/:key", h.cacheByKey)
	w.POST("/save", h.save)

	p := s.Group("/api/player")
	p.POST("/step", h.step)
	p.POST("/mode", h.mode)

	c := s.Group("/api/caches")
	c.POST("/collect", h.collect)
	c.POST("/deposit", h.deposit)

	s.GET("/ops/kpi", h.kpi)
}

type stepRequest struct {
	Direction string `json:"direction"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type transferRequest struct {
	Cell  string `json:"cell"`
	Token string `json:"token"`
}

func (h Handler) view(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Session.View())
}

func (h Handler) cells(_ context.Context, ctx *app.RequestContext) {
	at := h.Session.Position()
	if raw := strings.TrimSpace(string(ctx.Query("lat"))); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "invalid lat")
			return
		}
		at.Lat = lat
	}
	if raw := strings.TrimSpace(string(ctx.Query("lng"))); raw != "" {
		lng, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "invalid lng")
			return
		}
		at.Lng = lng
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"center": at,
		"cells":  h.Session.CellsNear(at),
	})
}

func (h Handler) cacheByKey(_ context.Context, ctx *app.RequestContext) {
	cell, err := grid.ParseKey(ctx.Param("key"))
	if err != nil {
		writeError(ctx, errors.Join(ErrInvalidRequest, err))
		return
	}
	v, err := h.Session.Cache(cell)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, v)
}

func (h Handler) step(c context.Context, ctx *app.RequestContext) {
	var body stepRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	dir := session.Direction(strings.ToLower(strings.TrimSpace(body.Direction)))
	if err := h.Session.Step(c, dir); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, h.Session.View())
}

func (h Handler) mode(c context.Context, ctx *app.RequestContext) {
	var body modeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	mode := session.Mode(strings.ToLower(strings.TrimSpace(body.Mode)))
	if err := h.Session.SetMode(c, mode); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, h.Session.View())
}

func (h Handler) collect(c context.Context, ctx *app.RequestContext) {
	cell, id, ok := decodeTransfer(ctx)
	if !ok {
		return
	}
	if err := h.Session.Collect(c, cell, id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, h.Session.View())
}

func (h Handler) deposit(c context.Context, ctx *app.RequestContext) {
	cell, id, ok := decodeTransfer(ctx)
	if !ok {
		return
	}
	if err := h.Session.Deposit(c, id, cell); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, h.Session.View())
}

func (h Handler) save(c context.Context, ctx *app.RequestContext) {
	if err := h.Session.Save(c); err != nil {
		hlog.CtxErrorf(c, "http: save world: %v", err)
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"saved": true})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

// decodeTransfer writes the error response itself and reports ok=false.
func decodeTransfer(ctx *app.RequestContext) (grid.Cell, cache.TokenID, bool) {
	var body transferRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return grid.Cell{}, "", false
	}
	cell, err := grid.ParseKey(strings.TrimSpace(body.Cell))
	if err != nil {
		writeError(ctx, errors.Join(ErrInvalidRequest, err))
		return grid.Cell{}, "", false
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "token is required")
		return grid.Cell{}, "", false
	}
	return cell, cache.TokenID(token), true
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	var tooFar *session.TooFarError
	switch {
	case errors.As(err, &tooFar):
		writeErrorDetails(ctx, consts.StatusConflict, "too_far", err.Error(), map[string]any{
			"player":   tooFar.Player.Key(),
			"target":   tooFar.Target.Key(),
			"distance": tooFar.Distance,
			"limit":    tooFar.Limit,
		})
	case errors.Is(err, world.ErrTokenNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "token_not_found", err.Error())
	case errors.Is(err, world.ErrTokenNotHeld):
		writeErrorBody(ctx, consts.StatusConflict, "token_not_held", err.Error())
	case errors.Is(err, world.ErrDuplicateToken):
		writeErrorBody(ctx, consts.StatusConflict, "duplicate_token", err.Error())
	case errors.Is(err, world.ErrCacheNotFound),
		errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "cache_not_found", err.Error())
	case errors.Is(err, session.ErrManualDisabled):
		writeErrorBody(ctx, consts.StatusConflict, "manual_disabled", err.Error())
	case errors.Is(err, session.ErrNoFeed):
		writeErrorBody(ctx, consts.StatusConflict, "feed_not_configured", err.Error())
	case errors.Is(err, persistence.ErrNoStore):
		writeErrorBody(ctx, consts.StatusConflict, "store_not_configured", err.Error())
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, session.ErrInvalidDirection),
		errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, grid.ErrInvalidKey):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	writeErrorDetails(ctx, status, code, message, nil)
}

func writeErrorDetails(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	ctx.JSON(status, map[string]any{"error": body})
}
