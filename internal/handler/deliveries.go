package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/deliverynote"
	"github.com/kitchenops/api/internal/middleware"
	"github.com/kitchenops/api/internal/service"
	"go.uber.org/zap"
)

type deliveryNoteRequest struct {
	Text   string `json:"text"`
	DryRun bool   `json:"dry_run"`
}

type deliveryLineResponse struct {
	Line     string                 `json:"line"`
	Quantity string                 `json:"quantity"`
	Unit     string                 `json:"unit"`
	ItemID   uuid.UUID              `json:"item_id"`
	ItemName string                 `json:"item_name"`
	Item     *inventoryItemResponse `json:"item,omitempty"`
	Movement *movementResponse      `json:"movement,omitempty"`
}

type skippedLineResponse struct {
	Line       string   `json:"line"`
	Reason     string   `json:"reason"`
	Candidates []string `json:"candidates,omitempty"`
}

type deliveryNoteResponse struct {
	Supplier string                 `json:"supplier"`
	DryRun   bool                   `json:"dry_run"`
	Applied  []deliveryLineResponse `json:"applied"`
	Skipped  []skippedLineResponse  `json:"skipped"`
	Warnings []string               `json:"warnings"`
}

// ImportDeliveryNote restocks every line of a supplier's delivery note that
// resolves to exactly one inventory item with a matching unit. Each line is
// its own restock; lines that cannot be resolved are reported, not applied.
// With dry_run set nothing is written.
func (h *InventoryHandler) ImportDeliveryNote(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req deliveryNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := deliverynote.Parse(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.store.ListInventoryItems(r.Context(), database.Text(""))
	if err != nil {
		internalError(w, h.logger, "list inventory", err)
		return
	}
	known := make([]deliverynote.Item, len(items))
	for i, it := range items {
		known[i] = deliverynote.Item{ID: it.ID, Name: it.Name, Unit: it.Unit}
	}
	matcher := deliverynote.New(known)

	resp := deliveryNoteResponse{
		Supplier: note.Supplier,
		DryRun:   req.DryRun,
		Applied:  []deliveryLineResponse{},
		Skipped:  []skippedLineResponse{},
		Warnings: note.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}

	movementNote := "delivery note"
	if note.Supplier != "" {
		movementNote = "delivery from " + note.Supplier
	}

	var changed []database.InventoryItem
	for _, line := range note.Lines {
		match := matcher.Match(line.Description)
		switch match.Status {
		case deliverynote.Unmatched:
			resp.Skipped = append(resp.Skipped, skippedLineResponse{Line: line.Raw, Reason: "no matching inventory item"})
			continue
		case deliverynote.Ambiguous:
			names := make([]string, len(match.Candidates))
			for i, c := range match.Candidates {
				names[i] = c.Name
			}
			resp.Skipped = append(resp.Skipped, skippedLineResponse{Line: line.Raw, Reason: "matches more than one item", Candidates: names})
			continue
		}

		item := match.Item
		if !sameUnit(line.Unit, item.Unit) {
			resp.Skipped = append(resp.Skipped, skippedLineResponse{
				Line:       line.Raw,
				Reason:     fmt.Sprintf("unit %s does not match %s, stocked in %s", line.Unit, item.Name, item.Unit),
				Candidates: []string{item.Name},
			})
			continue
		}

		qty := line.Quantity.Round(database.QuantityPlaces)
		if !qty.IsPositive() || !database.Fits(qty, database.QuantityPlaces) {
			resp.Skipped = append(resp.Skipped, skippedLineResponse{
				Line:       line.Raw,
				Reason:     "quantity must be between 0.001 and 999999999.999",
				Candidates: []string{item.Name},
			})
			continue
		}

		applied := deliveryLineResponse{
			Line:     line.Raw,
			Quantity: qty.StringFixed(database.QuantityPlaces),
			Unit:     line.Unit,
			ItemID:   item.ID,
			ItemName: item.Name,
		}
		if req.DryRun {
			resp.Applied = append(resp.Applied, applied)
			continue
		}

		result, err := h.stock.Restock(r.Context(), service.StockChange{
			ItemID:  item.ID,
			ActorID: claims.UserID,
			Note:    movementNote,
		}, qty.String())
		if err != nil {
			if errors.Is(err, service.ErrItemNotFound) ||
				errors.Is(err, service.ErrInvalidQuantity) ||
				errors.Is(err, service.ErrStockTooLarge) {
				resp.Skipped = append(resp.Skipped, skippedLineResponse{Line: line.Raw, Reason: err.Error()})
				continue
			}
			publishStockChanges(h.hub, h.logger, changed)
			h.logger.Error("delivery note aborted", zap.Int("applied", len(changed)), zap.String("line", line.Raw))
			internalError(w, h.logger, "restock from delivery note", err)
			return
		}

		itemResp := toInventoryItemResponse(result.Item)
		movement := toMovementResponse(result.Movement)
		applied.Item, applied.Movement = &itemResp, &movement
		resp.Applied = append(resp.Applied, applied)
		changed = append(changed, result.Item)
	}

	publishStockChanges(h.hub, h.logger, changed)
	writeJSON(w, http.StatusOK, resp)
}

// sameUnit compares a parsed unit with an item's stocking unit, treating
// aliases such as "kgs" and "kg" as equal.
func sameUnit(parsed, stocked string) bool {
	if canon := deliverynote.CanonicalUnit(stocked); canon != "" {
		return parsed == canon
	}
	return strings.EqualFold(parsed, strings.TrimSpace(stocked))
}
