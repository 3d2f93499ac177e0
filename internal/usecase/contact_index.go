package usecase

import (
	"fmt"

	"github.com/homedispo/crm-bridge/internal/entity"
)

const (
	primaryAddressField = "Property Address"
	firstAddressSlot    = 2
	lastAddressSlot     = 5
)

func addressSlotField(n int) string {
	return fmt.Sprintf("%s %d", primaryAddressField, n)
}

// contactIndex resolves normalized identities to contact ids for one run
// and tracks which rotating address slots each contact already has filled.
type contactIndex struct {
	byEmail map[string]string
	byPhone map[string]string
	filled  map[string]map[int]bool
}

func newContactIndex(reference []entity.Row) *contactIndex {
	idx := &contactIndex{
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
		filled:  make(map[string]map[int]bool),
	}

	for _, row := range reference {
		id := row.Get(entity.RefColumnContactID)
		if id == "" {
			continue
		}
		idx.add(NormalizeEmail(row.Get(entity.RefColumnEmail)), NormalizePhone(row.Get(entity.RefColumnPhone)), id)

		for n := firstAddressSlot; n <= lastAddressSlot; n++ {
			if row.Get(addressSlotField(n)) != "" {
				idx.markFilled(id, n)
			}
		}
	}
	return idx
}

func (i *contactIndex) add(email, phone, id string) {
	if email != "" {
		i.byEmail[email] = id
	}
	if phone != "" {
		i.byPhone[phone] = id
	}
}

// lookup prefers the email match over the phone match.
func (i *contactIndex) lookup(email, phone string) string {
	if email != "" {
		if id, ok := i.byEmail[email]; ok {
			return id
		}
	}
	if phone != "" {
		if id, ok := i.byPhone[phone]; ok {
			return id
		}
	}
	return ""
}

func (i *contactIndex) markFilled(id string, slot int) {
	slots, ok := i.filled[id]
	if !ok {
		slots = make(map[int]bool)
		i.filled[id] = slots
	}
	slots[slot] = true
}

// firstEmptySlot returns the lowest free slot, or 0 when all are taken.
func (i *contactIndex) firstEmptySlot(id string) int {
	for n := firstAddressSlot; n <= lastAddressSlot; n++ {
		if !i.filled[id][n] {
			return n
		}
	}
	return 0
}
