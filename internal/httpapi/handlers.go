package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"zenstay/internal/export"
	"zenstay/internal/occupancy"
	"zenstay/pkg/domain"
)

const maxBodyBytes = 1 << 20

type commandResponse struct {
	occupancy.Outcome
	Violations []domain.Violation `json:"violations,omitempty"`
}

type bookingRequest struct {
	Name        string          `json:"name" validate:"required"`
	Phone       string          `json:"phone"`
	IDNumber    string          `json:"idNumber"`
	Gender      domain.Gender   `json:"gender" validate:"required"`
	Ethnicity   string          `json:"ethnicity"`
	CheckIn     string          `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut    string          `json:"checkOut" validate:"required,datetime=2006-01-02"`
	BedIDs      []string        `json:"bedIds" validate:"required,min=1,dive,required"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	PeopleCount int             `json:"peopleCount" validate:"gte=0"`
}

func (b bookingRequest) draft() domain.GuestDraft {
	return domain.GuestDraft{
		Name:        b.Name,
		Phone:       b.Phone,
		IDNumber:    b.IDNumber,
		Gender:      b.Gender,
		Ethnicity:   b.Ethnicity,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		BedIDs:      b.BedIDs,
		TotalPaid:   b.TotalPaid,
		PeopleCount: b.PeopleCount,
	}
}

type extendRequest struct {
	Days *int `json:"days" validate:"required"`
}

type batchRequest struct {
	StartNumber int             `json:"startNumber" validate:"gte=0"`
	Count       int             `json:"count" validate:"gte=1,lte=200"`
	BedsPerRoom int             `json:"bedsPerRoom" validate:"gte=0,lte=50"`
	Type        domain.RoomType `json:"type" validate:"required"`
}

type settingsRequest struct {
	StandardPrice        decimal.Decimal `json:"standardPrice"`
	SuperiorPrice        decimal.Decimal `json:"superiorPrice"`
	CheckOutTime         string          `json:"checkOutTime" validate:"required,datetime=15:04"`
	OvertimeAlertMinutes int             `json:"overtimeAlertMinutes" validate:"gte=0"`
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadRequest{fmt.Errorf("decode request: %w", err)}
	}
	if err := h.validate.Struct(dst); err != nil {
		return errBadRequest{err}
	}
	return nil
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, out occupancy.Outcome, res domain.Result, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, commandResponse{Outcome: out, Violations: res.Violations})
}

func (h *Handler) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}

func (h *Handler) listRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Rooms())
}

func (h *Handler) listGuests(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Guests())
}

func (h *Handler) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

func (h *Handler) occupancyReport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Report())
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Verify(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         !res.HasBlocking(),
		"violations": res.Violations,
	})
}

func (h *Handler) exportGuests(w http.ResponseWriter, r *http.Request) {
	data, err := export.GuestRegisterXLSX(h.svc.State())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="guests.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) addBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, res, err := h.svc.AddBooking(r.Context(), req.draft())
	h.respond(w, r, http.StatusCreated, out, res, err)
}

func (h *Handler) checkoutGuest(w http.ResponseWriter, r *http.Request) {
	vacancy := occupancy.VacancyPolicy(r.URL.Query().Get("vacancy"))
	out, res, err := h.svc.CheckoutGuest(r.Context(), chi.URLParam(r, "id"), vacancy)
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) extendStay(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, res, err := h.svc.ExtendStay(r.Context(), chi.URLParam(r, "id"), *req.Days)
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) updateBed(w http.ResponseWriter, r *http.Request) {
	var patch domain.BedPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	out, res, err := h.svc.UpdateBed(r.Context(), chi.URLParam(r, "id"), patch)
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) setBedFields(w http.ResponseWriter, r *http.Request) {
	var patch domain.BedPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	out, res, err := h.svc.SetBedFields(r.Context(), chi.URLParam(r, "id"), patch)
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) batchAddRooms(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, res, err := h.svc.BatchAddRooms(r.Context(), req.StartNumber, req.Count, req.BedsPerRoom, req.Type)
	h.respond(w, r, http.StatusCreated, out, res, err)
}

func (h *Handler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	out, res, err := h.svc.DeleteRoom(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) recomputeRoomPolicy(w http.ResponseWriter, r *http.Request) {
	vacancy := occupancy.VacancyPolicy(r.URL.Query().Get("vacancy"))
	out, res, err := h.svc.RecomputeRoomPolicy(r.Context(), chi.URLParam(r, "id"), vacancy)
	h.respond(w, r, http.StatusOK, out, res, err)
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.StandardPrice.IsNegative() || req.SuperiorPrice.IsNegative() {
		h.fail(w, r, errBadRequest{errors.New("prices must not be negative")})
		return
	}
	out, res, err := h.svc.SaveSettings(r.Context(), domain.SystemSettings{
		StandardPrice:        req.StandardPrice,
		SuperiorPrice:        req.SuperiorPrice,
		CheckOutTime:         req.CheckOutTime,
		OvertimeAlertMinutes: req.OvertimeAlertMinutes,
	})
	h.respond(w, r, http.StatusOK, out, res, err)
}
