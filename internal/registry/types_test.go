package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    Version
		wantErr bool
	}{
		{label: "v0", want: Version{Label: "v0", Number: 0}},
		{label: "v2", want: Version{Label: "v2", Number: 2}},
		{label: "v12", want: Version{Label: "v12", Number: 12}},
		{label: "2", wantErr: true},
		{label: "version2", wantErr: true},
		{label: "v", wantErr: true},
		{label: "v-1", wantErr: true},
		{label: "v2.1", wantErr: true},
		{label: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseVersionLabel(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "provider", RoleProvider.String())
	assert.Equal(t, "requirer", RoleRequirer.String())
}

func TestRoleOrder_ProviderFirst(t *testing.T) {
	require.Len(t, RoleOrder, 2)
	assert.Equal(t, RoleProvider, RoleOrder[0])
	assert.Equal(t, RoleRequirer, RoleOrder[1])
}

func TestRegistryFilter(t *testing.T) {
	reg := &Registry{Interfaces: []InterfaceEntry{
		{Name: "ingress"},
		{Name: "ingress-per-unit"},
		{Name: "tracing"},
	}}

	tests := []struct {
		name    string
		include string
		want    []string
	}{
		{"star keeps all", "*", []string{"ingress", "ingress-per-unit", "tracing"}},
		{"empty keeps all", "", []string{"ingress", "ingress-per-unit", "tracing"}},
		{"prefix glob", "ingress*", []string{"ingress", "ingress-per-unit"}},
		{"exact", "tracing", []string{"tracing"}},
		{"no match", "database*", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Filter(tt.include)
			require.NoError(t, err)

			var names []string
			for _, iface := range got.Interfaces {
				names = append(names, iface.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRegistryFilter_InvalidPattern(t *testing.T) {
	reg := &Registry{}

	_, err := reg.Filter("[unclosed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid include pattern")
}
