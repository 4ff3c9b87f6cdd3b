package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		offset, limit int
		want          []int
	}{
		{"first page", 0, 2, []int{1, 2}},
		{"last page", 4, 2, []int{5}},
		{"past the end", 10, 2, []int{}},
		{"negative offset", -1, 2, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Page(items, tt.offset, tt.limit)
			assert.Equal(t, 5, p.Total)
			assert.Equal(t, tt.want, p.Data)
		})
	}
}

func TestPaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 5, Offset: 2, Limit: 2}

	assert.Equal(t, []string{
		`</api/v1/catalog?offset=0&limit=2>; rel="first"`,
		`</api/v1/catalog?offset=0&limit=2>; rel="prev"`,
		`</api/v1/catalog?offset=4&limit=2>; rel="next"`,
		`</api/v1/catalog?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/api/v1/catalog"))

	empty := PageBody[int]{Limit: 10}
	assert.Equal(t, []string{
		`</x?offset=0&limit=10>; rel="first"`,
		`</x?offset=0&limit=10>; rel="last"`,
	}, empty.PaginationLinks("/x"))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("452", []ActionDef{
		{Rel: "delete", Pattern: "/api/v1/overrides/%s", Method: "DELETE", Title: "Remove"},
	})

	require.Len(t, actions, 1)
	assert.Equal(t, `</api/v1/overrides/452>; rel="delete"; method="DELETE"; title="Remove"`, actions[0].LinkHeader())
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/tree>; rel="tree"`)
	assert.Equal(t, "tree", rel)
	assert.Equal(t, "/api/v1/tree", href)

	rel, _ = parseLinkHeader("no params")
	assert.Empty(t, rel)
}

func TestSignals(t *testing.T) {
	in := &SignalsInput{RawBody: []byte(`{"category": "kategorie_inspire", "count": 2}`)}

	s, err := in.MustParse()

	require.NoError(t, err)
	assert.Equal(t, "kategorie_inspire", s.String("category"))
	assert.Empty(t, s.String("count"))

	_, err = (&SignalsInput{RawBody: []byte("{")}).MustParse()
	assert.Error(t, err)
}
