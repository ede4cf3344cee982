package match

import (
	"net/http"
	"testing"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseStore() model.Store {
	return model.Store{
		Profiles: []model.Profile{
			{
				Name:    "default",
				BaseURL: "",
				SubProfiles: []model.SubProfile{
					{Name: "sub", Params: map[string]string{"id": "42"}},
				},
				Requests: []model.RequestConfig{
					{Name: "getUser", Method: "GET", Path: "/users/{id}"},
				},
			},
		},
	}
}

func TestFindMatch_SubProfileParamBindsHole(t *testing.T) {
	store := baseStore()
	result, ok := FindMatch(store, "default", "GET", "/users/42", http.Header{}, map[string]string{})
	require.True(t, ok)
	assert.Equal(t, "getUser", result.Request.Name)
	assert.Equal(t, "42", result.ExtractedParams["id"])
}

func TestFindMatch_RequestParamOverridesSubProfileParam(t *testing.T) {
	store := baseStore()
	store.Profiles[0].Requests[0].Params = map[string]string{"id": "99"}

	_, ok := FindMatch(store, "default", "GET", "/users/42", http.Header{}, map[string]string{})
	assert.False(t, ok, "bound hole now expects 99, not 42")

	result, ok := FindMatch(store, "default", "GET", "/users/99", http.Header{}, map[string]string{})
	require.True(t, ok)
	assert.Equal(t, "99", result.ExtractedParams["id"])
}

func TestFindMatch_CaptureDoesNotCrossSlash(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name: "default",
			SubProfiles: []model.SubProfile{{Name: "sub"}},
			Requests: []model.RequestConfig{
				{Name: "r", Method: "GET", Path: "/items/{id}"},
			},
		}},
	}
	_, ok := FindMatch(store, "default", "GET", "/items/1/2", http.Header{}, map[string]string{})
	assert.False(t, ok)
}

func TestFindMatch_MethodWildcardMatchesAny(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name:        "default",
			SubProfiles: []model.SubProfile{{Name: "sub"}},
			Requests:    []model.RequestConfig{{Name: "r", Method: "*", Path: "/ping"}},
		}},
	}
	_, ok := FindMatch(store, "default", "DELETE", "/ping", http.Header{}, map[string]string{})
	assert.True(t, ok)
}

func TestFindMatch_HeaderMismatchSkips(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name:        "default",
			SubProfiles: []model.SubProfile{{Name: "sub"}},
			Requests: []model.RequestConfig{
				{Name: "r", Method: "GET", Path: "/ping", Headers: map[string]string{"x-flag": "on"}},
			},
		}},
	}
	headers := http.Header{}
	headers.Set("x-flag", "off")
	_, ok := FindMatch(store, "default", "GET", "/ping", headers, map[string]string{})
	assert.False(t, ok)

	headers.Set("x-flag", "on")
	_, ok = FindMatch(store, "default", "GET", "/ping", headers, map[string]string{})
	assert.True(t, ok)
}

func TestFindMatch_NoActiveProfile(t *testing.T) {
	_, ok := FindMatch(baseStore(), "", "GET", "/users/42", http.Header{}, map[string]string{})
	assert.False(t, ok)
}

func TestFindBlockMatch_ExactPathNoHoles(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name: "default",
			ActiveBlocks: []model.Block{
				{ID: "b1", Method: "GET", Path: "/health"},
			},
		}},
	}
	match, ok := FindBlockMatch(store, "default", "GET", "/health")
	require.True(t, ok)
	assert.Equal(t, "b1", match.Block.ID)
}

func TestFindBlockMatch_DerivesPathFromDescription(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name: "default",
			ActiveBlocks: []model.Block{
				{ID: "b1", Method: "GET", Description: "Fetch /users/{id}"},
			},
		}},
	}
	match, ok := FindBlockMatch(store, "default", "GET", "/users/7")
	require.True(t, ok)
	assert.Equal(t, "7", match.ExtractedParams["id"])
}

func TestFindBlockMatch_DescriptionWithoutLeadingSlashIsIgnored(t *testing.T) {
	store := model.Store{
		Profiles: []model.Profile{{
			Name: "default",
			ActiveBlocks: []model.Block{
				{ID: "b1", Method: "GET", Description: "Not a path at all"},
			},
		}},
	}
	_, ok := FindBlockMatch(store, "default", "GET", "/users/7")
	assert.False(t, ok)
}
