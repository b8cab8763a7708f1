package docstore

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergePatch(t *testing.T) {
	tests := []struct {
		name   string
		target string
		patch  string
		want   string
	}{
		{
			name:   "add key",
			target: `{"a":"b"}`,
			patch:  `{"c":"d"}`,
			want:   `{"a":"b","c":"d"}`,
		},
		{
			name:   "replace scalar",
			target: `{"a":"b"}`,
			patch:  `{"a":"c"}`,
			want:   `{"a":"c"}`,
		},
		{
			name:   "null deletes",
			target: `{"a":"b","c":"d"}`,
			patch:  `{"a":null}`,
			want:   `{"c":"d"}`,
		},
		{
			name:   "recursive object merge",
			target: `{"brief":{"brand_name":"Acme","budget":"$10k"}}`,
			patch:  `{"brief":{"budget":"$25k"}}`,
			want:   `{"brief":{"brand_name":"Acme","budget":"$25k"}}`,
		},
		{
			name:   "nested null deletes",
			target: `{"brief":{"brand_name":"Acme","tone":"playful"}}`,
			patch:  `{"brief":{"tone":null}}`,
			want:   `{"brief":{"brand_name":"Acme"}}`,
		},
		{
			name:   "array replaces wholesale",
			target: `{"influencers":[{"handle":"a"},{"handle":"b"}]}`,
			patch:  `{"influencers":[{"handle":"c"}]}`,
			want:   `{"influencers":[{"handle":"c"}]}`,
		},
		{
			name:   "object replaces scalar",
			target: `{"deck":"none"}`,
			patch:  `{"deck":{"stage":"planned"}}`,
			want:   `{"deck":{"stage":"planned"}}`,
		},
		{
			name:   "empty target",
			target: ``,
			patch:  `{"brief":{"brand_name":"Acme"}}`,
			want:   `{"brief":{"brand_name":"Acme"}}`,
		},
		{
			name:   "empty patch is a no-op",
			target: `{"a":"b"}`,
			patch:  `{}`,
			want:   `{"a":"b"}`,
		},
		{
			name:   "sibling sections untouched",
			target: `{"brief":{"brand_name":"Acme"},"research":{"summary":"s"}}`,
			patch:  `{"deck":{"stage":"planned"}}`,
			want:   `{"brief":{"brand_name":"Acme"},"deck":{"stage":"planned"},"research":{"summary":"s"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergePatch([]byte(tt.target), []byte(tt.patch))
			require.NoError(t, err)

			var gotVal, wantVal interface{}
			require.NoError(t, json.Unmarshal(got, &gotVal))
			require.NoError(t, json.Unmarshal([]byte(tt.want), &wantVal))
			if diff := cmp.Diff(wantVal, gotVal); diff != "" {
				t.Errorf("merged payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergePatchRejectsBadJSON(t *testing.T) {
	_, err := mergePatch([]byte(`{}`), []byte(`{not json`))
	require.ErrorIs(t, err, ErrBadPatch)
}

func TestMergePatchNonObjectReplaces(t *testing.T) {
	got, err := mergePatch([]byte(`{"a":"b"}`), []byte(`["x"]`))
	require.NoError(t, err)
	require.JSONEq(t, `["x"]`, string(got))
}
