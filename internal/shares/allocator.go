// Package shares maintains the beneficiary list of a campaign draft.
//
// Every function is a pure list transform: the input slice is never modified
// and a fresh slice is returned. Shares are never rebalanced after an add or a
// remove; the validator rejects drafts whose percentages do not total 100.
package shares

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"example.com/legacyfund/internal/domain"
)

var (
	ErrDuplicateBeneficiary = errors.New("beneficiary already added")
	ErrBeneficiaryLimit     = errors.New("beneficiary limit reached")
	ErrBeneficiaryNotFound  = errors.New("beneficiary not found")
)

// NewID generates allocation ids. Replaced in tests.
var NewID = uuid.NewString

// Add appends user with an initial share of 100 for the first beneficiary and
// floor(100/(n+1)) afterwards. Existing shares are left untouched, so three
// equal adds total 99 and must be corrected by hand.
// On ErrDuplicateBeneficiary or ErrBeneficiaryLimit list is returned unchanged.
func Add(list []domain.BeneficiaryAllocation, user domain.BeneficiaryUser, rule domain.DistributionRule) ([]domain.BeneficiaryAllocation, error) {
	for _, b := range list {
		if b.User.ID == user.ID {
			return list, ErrDuplicateBeneficiary
		}
	}
	if len(list) >= domain.MaxBeneficiaries {
		return list, ErrBeneficiaryLimit
	}

	share := domain.FullShare
	if len(list) > 0 {
		share = math.Floor(domain.FullShare / float64(len(list)+1))
	}

	out := clone(list, 1)
	out = append(out, domain.BeneficiaryAllocation{
		ID:         NewID(),
		User:       user,
		ShareType:  domain.ShareTypeFor(rule),
		ShareValue: share,
		Documents:  []domain.Image{},
	})
	return out, nil
}

// Remove drops the allocation with the given id. Remaining shares keep their values.
func Remove(list []domain.BeneficiaryAllocation, id string) ([]domain.BeneficiaryAllocation, error) {
	i := indexOf(list, id)
	if i < 0 {
		return list, ErrBeneficiaryNotFound
	}
	out := make([]domain.BeneficiaryAllocation, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...), nil
}

// UpdateShare replaces the share value of one allocation. No range check is
// done here; the validator checks each value and the total.
func UpdateShare(list []domain.BeneficiaryAllocation, id string, value float64) ([]domain.BeneficiaryAllocation, error) {
	i := indexOf(list, id)
	if i < 0 {
		return list, ErrBeneficiaryNotFound
	}
	out := clone(list, 0)
	out[i].ShareValue = value
	return out, nil
}

// AddDocument attaches doc to one allocation. A full document list is left as is.
func AddDocument(list []domain.BeneficiaryAllocation, id string, doc domain.Image) ([]domain.BeneficiaryAllocation, error) {
	i := indexOf(list, id)
	if i < 0 {
		return list, ErrBeneficiaryNotFound
	}
	if len(list[i].Documents) >= domain.MaxDocuments {
		return list, nil
	}
	out := clone(list, 0)
	docs := make([]domain.Image, 0, len(list[i].Documents)+1)
	docs = append(docs, list[i].Documents...)
	out[i].Documents = append(docs, doc)
	return out, nil
}

// RemoveDocument detaches the document at index from one allocation. An out of
// range index is a no-op.
func RemoveDocument(list []domain.BeneficiaryAllocation, id string, index int) ([]domain.BeneficiaryAllocation, error) {
	i := indexOf(list, id)
	if i < 0 {
		return list, ErrBeneficiaryNotFound
	}
	docs := list[i].Documents
	if index < 0 || index >= len(docs) {
		return list, nil
	}
	out := clone(list, 0)
	kept := make([]domain.Image, 0, len(docs)-1)
	kept = append(kept, docs[:index]...)
	out[i].Documents = append(kept, docs[index+1:]...)
	return out, nil
}

// Sum totals the share values of every allocation.
func Sum(list []domain.BeneficiaryAllocation) float64 {
	var s float64
	for _, b := range list {
		s += b.ShareValue
	}
	return s
}

func indexOf(list []domain.BeneficiaryAllocation, id string) int {
	for i, b := range list {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func clone(list []domain.BeneficiaryAllocation, extra int) []domain.BeneficiaryAllocation {
	out := make([]domain.BeneficiaryAllocation, len(list), len(list)+extra)
	copy(out, list)
	return out
}
