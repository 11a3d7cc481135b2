package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tooltable/internal/models"
)

func seedAuthLinks(t *testing.T, svc *AuthLinkService) []*models.AuthLink {
	t.Helper()
	inputs := []AuthLinkInput{
		{Region: "Taipei", Name: "Gateway B", URL: "https://tp-b.example.com", SortOrder: 2},
		{Region: "Changhua", Name: "Portal", URL: "https://ch.example.com"},
		{Region: "Taipei", Name: "Gateway A", URL: "https://tp-a.example.com", SortOrder: 1},
		{Region: "Kaohsiung", Name: "Old", URL: "https://ks.example.com", IsActive: boolPtr(false)},
	}
	out := make([]*models.AuthLink, 0, len(inputs))
	for _, in := range inputs {
		link, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		out = append(out, link)
	}
	return out
}

func TestAuthLinksGroupedByRegion(t *testing.T) {
	svc := newTestServices(t)
	seedAuthLinks(t, svc.links)

	groups, err := svc.links.ListGrouped(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, "Changhua", groups[0].Region)
	require.Len(t, groups[0].Items, 1)
	require.Equal(t, "Taipei", groups[1].Region)
	require.Equal(t, "Gateway A", groups[1].Items[0].Name)
	require.Equal(t, "Gateway B", groups[1].Items[1].Name)
}

func TestAuthLinksListAllAndRegions(t *testing.T) {
	svc := newTestServices(t)
	seedAuthLinks(t, svc.links)

	all, err := svc.links.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "Changhua", all[0].Region)
	require.Equal(t, "Kaohsiung", all[1].Region)

	regions, err := svc.links.Regions(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Changhua", "Taipei"}, regions)
}

func TestAuthLinkCreateValidation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	cases := []AuthLinkInput{
		{Region: "", Name: "x", URL: "https://x"},
		{Region: "r", Name: "", URL: "https://x"},
		{Region: "r", Name: "x", URL: " "},
		{Region: string(make([]byte, 101)), Name: "x", URL: "https://x"},
	}
	for _, in := range cases {
		_, err := svc.links.Create(ctx, in)
		requireAppStatus(t, err, http.StatusBadRequest)
	}
}

func TestAuthLinkPartialUpdate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	links := seedAuthLinks(t, svc.links)

	var patch AuthLinkPatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Gateway Z","is_active":false}`), &patch))

	updated, err := svc.links.Update(ctx, links[0].ID, patch)
	require.NoError(t, err)
	require.Equal(t, "Gateway Z", updated.Name)
	require.False(t, updated.IsActive)
	require.Equal(t, "Taipei", updated.Region)
	require.Equal(t, "https://tp-b.example.com", updated.URL)

	require.NoError(t, json.Unmarshal([]byte(`{"url":null}`), &patch))
	_, err = svc.links.Update(ctx, links[0].ID, AuthLinkPatch{URL: patch.URL})
	requireAppStatus(t, err, http.StatusBadRequest)

	_, err = svc.links.Update(ctx, 999, AuthLinkPatch{})
	requireAppStatus(t, err, http.StatusNotFound)
}

func TestAuthLinkGetAndDelete(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	links := seedAuthLinks(t, svc.links)

	got, err := svc.links.Get(ctx, links[1].ID)
	require.NoError(t, err)
	require.Equal(t, "Portal", got.Name)

	require.NoError(t, svc.links.Delete(ctx, links[1].ID))
	_, err = svc.links.Get(ctx, links[1].ID)
	requireAppStatus(t, err, http.StatusNotFound)

	err = svc.links.Delete(ctx, links[1].ID)
	requireAppStatus(t, err, http.StatusNotFound)

	entries, err := svc.changes.List(ctx, ChangeFilter{Entity: models.ChangeEntityAuthLink, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, "delete", entries[0].Action)
}
