package dispatch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eeu479/proxyman-helper/internal/appstate"
	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/eeu479/proxyman-helper/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T, doc model.Store) *appstate.State {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	_, err = st.Mutate(func(d *model.Store) error {
		*d = doc
		return nil
	})
	require.NoError(t, err)
	return appstate.New(st)
}

func TestHandle_BlockMatchWinsOverRuleMatch(t *testing.T) {
	active := "default"
	doc := model.Store{
		ActiveProfile: &active,
		Profiles: []model.Profile{{
			Name: "default",
			ActiveBlocks: []model.Block{
				{ID: "b1", Method: "GET", Path: "/ping", ResponseTemplate: `{"from":"block"}`},
			},
			SubProfiles: []model.SubProfile{{Name: "sub"}},
			Requests: []model.RequestConfig{
				{Name: "r", Method: "GET", Path: "/ping"},
			},
		}},
	}
	state := newTestState(t, doc)
	d := New(state)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	d.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"from":"block"}`, rec.Body.String())
}

func TestHandle_UnreadyReturns503(t *testing.T) {
	state := newTestState(t, model.Store{})
	state.Ready.UnSet()
	d := New(state)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	d.Handle(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandle_FallsThroughToProxyWhenNothingMatches(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer upstream.Close()

	active := "default"
	doc := model.Store{
		ActiveProfile: &active,
		Profiles:      []model.Profile{{Name: "default", BaseURL: upstream.URL}},
	}
	state := newTestState(t, doc)
	d := New(state)

	req := httptest.NewRequest(http.MethodGet, "/unmatched", nil)
	rec := httptest.NewRecorder()
	d.Handle(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
