package handlers

import (
	"net/http"
	"waste-route-service/internal/api/dto"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/ports"
)

// RequestHandler exposes read-only pickup request endpoints.
type RequestHandler struct {
	Repo ports.RequestRepository
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	status := domain.RequestStatus(r.URL.Query().Get("status"))

	reqs, err := h.Repo.ListRequests(r.Context(), status)
	if err != nil {
		writeServiceError(w, r, "list requests", err)
		return
	}

	res := dto.ListRequestsResponse{
		Requests: make([]dto.PickupRequest, 0, len(reqs)),
	}
	for _, p := range reqs {
		res.Requests = append(res.Requests, dto.PickupRequestFrom(p))
	}

	writeJSON(w, r, http.StatusOK, res)
}
