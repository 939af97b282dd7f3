package httpapi

import (
	"net/http"

	"github.com/eightonethree/cafe-api/internal/app/site"
)

type MenuResponse struct {
	Name string             `json:"name"`
	Menu []site.MenuSection `json:"menu"`
}

type HoursResponse struct {
	Hours    []site.Hours `json:"hours"`
	OpenNow  bool         `json:"openNow"`
	Timezone string       `json:"timezone"`
}

func (s *Server) GetMenu(w http.ResponseWriter, r *http.Request) {
	c := s.site.Content()
	writeJSON(w, http.StatusOK, MenuResponse{Name: c.Name, Menu: c.Menu})
}

func (s *Server) GetHours(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HoursResponse{
		Hours:    s.site.Content().Hours,
		OpenNow:  s.site.OpenNow(),
		Timezone: s.site.Location().String(),
	})
}

func (s *Server) GetContact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.site.Content().Contact)
}

func (s *Server) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var body site.ContactInput
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.site.SubmitContact(r.Context(), body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}
