package v1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/rollcall-app/rollcall/internal/api/handler/v1/request"
	"github.com/rollcall-app/rollcall/internal/api/handler/v1/response"
	"github.com/rollcall-app/rollcall/internal/domain"
	"github.com/rollcall-app/rollcall/internal/export"
	"github.com/rollcall-app/rollcall/internal/service"
)

type EventService interface {
	RegisterEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	GetEvent(ctx context.Context, code string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	BulkImportAttendance(ctx context.Context, code string, indices []int) error
	BulkImportSameDay(ctx context.Context, code string, ids []string) error
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
	}
}

// HandleRegisterEvent godoc
// @Summary      Register a new event
// @Description  Stores an event descriptor and assigns it a room code. Accepts the JSON export shape, so downloaded files import unchanged.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateEventRequest  true  "event descriptor"
// @Success      201    {object}  domain.Event
// @Failure      400    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events [post]
func (h *EventHandler) HandleRegisterEvent(ctx *gin.Context) {
	var req request.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	created, err := h.svc.RegisterEvent(ctx.Request.Context(), req.ToEvent())
	if err != nil {
		err = fmt.Errorf("HandleRegisterEvent -> h.svc.RegisterEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// HandleListEvents godoc
// @Summary      List all events
// @Tags         events
// @Produce      json
// @Success      200  {array}   domain.Event
// @Failure      500  {object}  response.Err
// @Router       /events [get]
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	events, err := h.svc.ListEvents(ctx.Request.Context())
	if err != nil {
		err = fmt.Errorf("HandleListEvents -> h.svc.ListEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, events)
}

// HandleGetEvent godoc
// @Summary      Get an event by room code
// @Tags         events
// @Produce      json
// @Param        code  path      string  true  "room code"
// @Success      200   {object}  domain.Event
// @Failure      404   {object}  response.Err
// @Failure      500   {object}  response.Err
// @Router       /events/{code} [get]
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	code := ctx.Param("code")

	event, err := h.svc.GetEvent(ctx.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "code", code))
			return
		}

		err = fmt.Errorf("HandleGetEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// HandleImportAttendance godoc
// @Summary      Bulk import an attendance snapshot
// @Description  Overwrites the stored attended index list with the posted full snapshot.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        code   path      string  true  "room code"
// @Param        input  body      request.ImportAttendanceRequest  true  "index snapshot"
// @Success      200    {object}  response.ImportResult
// @Failure      400    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events/{code}/attendees [post]
func (h *EventHandler) HandleImportAttendance(ctx *gin.Context) {
	code := ctx.Param("code")

	var req request.ImportAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	err := h.svc.BulkImportAttendance(ctx.Request.Context(), code, req.Indices)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "code", code))
			return
		}
		if errors.Is(err, service.ErrIndexOutOfRange) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}

		err = fmt.Errorf("HandleImportAttendance -> h.svc.BulkImportAttendance -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.ImportResult{
		Message: "attendance imported",
		Count:   len(req.Indices),
	})
}

// HandleImportSameDay godoc
// @Summary      Bulk import a same-day participant list
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        code   path      string  true  "room code"
// @Param        input  body      request.ImportSameDayRequest  true  "same-day list"
// @Success      200    {object}  response.ImportResult
// @Failure      400    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /events/{code}/today [post]
func (h *EventHandler) HandleImportSameDay(ctx *gin.Context) {
	code := ctx.Param("code")

	var req request.ImportSameDayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	err := h.svc.BulkImportSameDay(ctx.Request.Context(), code, req.Today)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "code", code))
			return
		}

		err = fmt.Errorf("HandleImportSameDay -> h.svc.BulkImportSameDay -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.ImportResult{
		Message: "same-day list imported",
		Count:   len(req.Today),
	})
}

// HandleExportEvent godoc
// @Summary      Export an event's attendance state
// @Description  Downloads the stored state as json (the re-importable shape), csv or xlsx.
// @Tags         events
// @Produce      json
// @Param        code    path      string  true   "room code"
// @Param        format  query     string  false  "json, csv or xlsx"  default(json)
// @Success      200     {string}  string  "file download"
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /events/{code}/export [get]
func (h *EventHandler) HandleExportEvent(ctx *gin.Context) {
	code := ctx.Param("code")
	format := ctx.DefaultQuery("format", "json")

	event, err := h.svc.GetEvent(ctx.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "code", code))
			return
		}

		err = fmt.Errorf("HandleExportEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	doc := export.FromEvent(event)

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "json":
		contentType = "application/json"
		err = export.WriteJSON(&buf, doc)
	case "csv":
		contentType = "text/csv"
		err = export.WriteCSV(&buf, doc)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, doc)
	default:
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("unknown export format %q", format)))
		return
	}
	if err != nil {
		err = fmt.Errorf("HandleExportEvent -> export.Write -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	filename := url.PathEscape(event.Name + "_attendance." + format)
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}
