package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(views []View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Medicine.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	meds := sampleMedicines()

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all ascending", Query{}, []string{"expired", "soon", "donated", "later", "nodose"}},
		{"explicit all", Query{Status: StatusAll, Order: OrderExpiryAsc}, []string{"expired", "soon", "donated", "later", "nodose"}},
		{"active only", Query{Status: "active"}, []string{"soon", "later", "nodose"}},
		{"donated only", Query{Status: "donated"}, []string{"donated"}},
		{"search name", Query{Search: "asp"}, []string{"soon"}},
		{"search notes", Query{Search: "Cold"}, []string{"later"}},
		{"search no match", Query{Search: "zzz"}, []string{}},
		{"descending active", Query{Status: "active", Order: OrderExpiryDesc}, []string{"nodose", "later", "soon"}},
	}

	svc, _, _ := newTestService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(meds, tt.q, fixedNow)
			assert.Equal(t, tt.want, ids(svc.views(got)))
		})
	}

	assert.Equal(t, "expired", meds[0].ID, "input is not reordered")
}

func TestValidStatusFilter(t *testing.T) {
	assert.True(t, ValidStatusFilter(""))
	assert.True(t, ValidStatusFilter("all"))
	assert.True(t, ValidStatusFilter("donated"))
	assert.False(t, ValidStatusFilter("archived"))
}
