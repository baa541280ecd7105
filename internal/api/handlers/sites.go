package handlers

import (
	"net/http"
	"strings"
	"time"
	"waste-route-service/internal/api/dto"
	"waste-route-service/internal/ports"
	"waste-route-service/internal/services"
)

// SiteHandler exposes the disposal-site catalog.
type SiteHandler struct {
	Catalog ports.DisposalSiteCatalog
}

func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	sites, err := h.Catalog.ListDisposalSites(r.Context())
	if err != nil {
		writeServiceError(w, r, "list disposal sites", err)
		return
	}

	res := dto.ListDisposalSitesResponse{DisposalSites: make([]dto.DisposalSite, 0, len(sites))}
	for _, s := range sites {
		res.DisposalSites = append(res.DisposalSites, dto.DisposalSiteFrom(s))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Open answers whether a site is open at ?at= (RFC 3339, defaults to now).
// Hours are read in the offset carried by the timestamp.
func (h *SiteHandler) Open(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id := r.PathValue("id")

	at := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	_, open, err := services.CheckDisposalSiteOpen(r.Context(), h.Catalog, id, at)
	if err != nil {
		writeServiceError(w, r, "check disposal site open", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SiteOpenResponse{SiteID: id, At: at, Open: open})
}
