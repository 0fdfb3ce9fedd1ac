package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRequestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		in      ListRequest
		want    ListRequest
		wantErr bool
	}{
		{"defaults", ListRequest{}, ListRequest{Offset: 0, Limit: DefaultPageSize}, false},
		{"clamps oversized limit", ListRequest{Limit: 5000}, ListRequest{Limit: MaxPageSize}, false},
		{"keeps in-range limit", ListRequest{Offset: 10, Limit: 25}, ListRequest{Offset: 10, Limit: 25}, false},
		{"negative limit defaults", ListRequest{Limit: -5}, ListRequest{Limit: DefaultPageSize}, false},
		{"negative offset rejected", ListRequest{Offset: -1}, ListRequest{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Normalize()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, tc.in)
		})
	}
}

func TestRefValidate(t *testing.T) {
	id := uuid.New()
	name := "admin"

	assert.NoError(t, RoleRef{ID: &id}.Validate())
	assert.NoError(t, RoleRef{Name: &name}.Validate())
	assert.Error(t, RoleRef{}.Validate())
	assert.Error(t, RoleRef{ID: &id, Name: &name}.Validate())

	assert.NoError(t, PermissionRef{ID: &id}.Validate())
	assert.Error(t, PermissionRef{ID: &id, Name: &name}.Validate())
}
