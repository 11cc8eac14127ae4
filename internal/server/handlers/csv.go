package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/i18n"
)

// giftCSVRows flattens gifts into one row per claim. Gifts nobody holds get a
// single row with empty guest columns.
func giftCSVRows(lang i18n.Language, gifts []*domain.Gift, guests map[string]*domain.Guest) [][]string {
	yesNo := func(b bool) string {
		if b {
			return i18n.T(lang, "csv.yes")
		}
		return i18n.T(lang, "csv.no")
	}

	var rows [][]string
	for _, g := range gifts {
		base := []string{g.Name, g.Link, strconv.Itoa(g.Capacity), yesNo(len(g.Claimants) > 0)}
		if len(g.Claimants) == 0 {
			rows = append(rows, append(base, "", "", ""))
			continue
		}
		for _, id := range g.Claimants {
			name, email, phone := id, "", ""
			if guest, ok := guests[id]; ok {
				name, email, phone = guest.DisplayName, guest.Email, guest.Phone
			}
			row := append(append([]string{}, base...), name, email, phone)
			rows = append(rows, row)
		}
	}
	return rows
}

// HandleAdminExportCSV exports the gift list with claimants.
func HandleAdminExportCSV(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gifts, err := s.GetLedger().ListGifts(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		guestList, err := s.GetDB().ListGuests(r.Context())
		if err != nil {
			writeError(w, r, s.GetLogger(), err)
			return
		}
		guests := make(map[string]*domain.Guest, len(guestList))
		for _, g := range guestList {
			guests[g.ID] = g
		}

		lang := i18n.GetLanguageFromRequest(r)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+i18n.T(lang, "csv.file_name"))

		// UTF-8 BOM for Excel
		_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

		cw := csv.NewWriter(w)
		header := []string{"csv.gift", "csv.link", "csv.capacity", "csv.claimed", "csv.guest", "csv.email", "csv.phone"}
		for i, key := range header {
			header[i] = i18n.T(lang, key)
		}
		_ = cw.Write(header)
		_ = cw.WriteAll(giftCSVRows(lang, gifts, guests))
		if err := cw.Error(); err != nil {
			s.GetLogger().Error("failed to write csv export", "error", err)
		}
	}
}
