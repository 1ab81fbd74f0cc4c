package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbrainz-site/internal/metadata"
	"bookbrainz-site/internal/ws"
)

// testRegistry declares a small slice of the BookBrainz schema.
func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry()

	define := func(name string, opts metadata.Options, fields map[string]metadata.Field) *metadata.Model {
		m, err := reg.Define(name, opts)
		require.NoError(t, err)
		require.NoError(t, m.Extend(fields))
		return m
	}

	entity := define("Entity", metadata.Options{Abstract: true}, map[string]metadata.Field{
		"bbid": {Type: "uuid"},
	})
	define("Publication", metadata.Options{Endpoint: "publication", Base: entity}, map[string]metadata.Field{
		"name": {Type: "string"},
	})
	define("Identifier", metadata.Options{Endpoint: "identifier"}, map[string]metadata.Field{
		"value": {Type: "string"},
	})
	define("Edition", metadata.Options{Endpoint: "edition", Base: entity}, map[string]metadata.Field{
		"publication":  {Type: metadata.TypeRef, Model: "Publication"},
		"publisher":    {Type: metadata.TypeRef, Model: "Publisher"},
		"identifiers":  {Type: metadata.TypeRef, Model: "Identifier", Many: true},
		"release_date": {Type: "date"},
		"note":         {Type: "string", Map: "revision_note"},
	})
	define("Secret", metadata.Options{Endpoint: "secret", AuthRequired: true}, map[string]metadata.Field{
		"value": {Type: "string"},
	})
	define("Orphan", metadata.Options{}, map[string]metadata.Field{
		"name": {Type: "string"},
	})

	reg.Freeze()
	return reg
}

func setup(t *testing.T) (*Engine, *fakeTransport, *metadata.Registry) {
	t.Helper()
	reg := testRegistry(t)
	ft := newFakeTransport()
	return New(ft, reg), ft, reg
}

func TestFindOne_PopulatesReference(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{
		"bbid": "abc123", "publication": "/publication/xyz/", "release_date": "2020-01-01",
	})
	ft.on("/publication/xyz/", map[string]any{"bbid": "xyz", "name": "Pub"})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{
		Populate: []string{"publication"},
	})
	require.NoError(t, err)

	assert.Equal(t, Entity{
		"bbid":         "abc123",
		"publication":  Entity{"bbid": "xyz", "name": "Pub"},
		"publisher":    nil,
		"identifiers":  nil,
		"release_date": "2020-01-01",
	}, got)
}

func TestFindOne_UnpopulatedReferenceIsNull(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{
		"bbid": "abc123", "publication": "/publication/xyz/", "release_date": "2020-01-01",
	})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{})
	require.NoError(t, err)

	v, present := got["publication"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Len(t, ft.Calls(), 1, "no reference may be fetched")
}

func TestFindOne_PopulatedFalsyReferenceIsAbsent(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{"bbid": "abc123", "publication": "", "identifiers": nil})
	ft.on("/edition/nokeys/", map[string]any{"bbid": "nokeys"})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{
		Populate: []string{"publication", "identifiers"},
	})
	require.NoError(t, err)

	_, present := got["publication"]
	assert.False(t, present)
	_, present = got["identifiers"]
	assert.False(t, present)
	v, present := got["publisher"]
	assert.True(t, present)
	assert.Nil(t, v)

	got, err = e.FindOne(context.Background(), reg.Lookup("Edition"), "nokeys", FindOptions{
		Populate: []string{"publication"},
	})
	require.NoError(t, err)
	_, present = got["publication"]
	assert.False(t, present)
	assert.Len(t, ft.Calls(), 2, "falsy references are never fetched")
}

func TestFindOne_ManyReferenceUsesFind(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{"bbid": "abc123", "identifiers": "/edition/abc123/identifiers"})
	ft.on("/edition/abc123/identifiers", map[string]any{"objects": []any{
		map[string]any{"value": "978-0"},
		map[string]any{"value": "978-1"},
	}})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{
		Populate: []string{"identifiers"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Entity{{"value": "978-0"}, {"value": "978-1"}}, got["identifiers"])
}

func TestFindOne_MappedField(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{"bbid": "abc123", "revision_note": "first", "note": "ignored"})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, "first", got["note"])
}

func TestFindOne_EmptyResultIsNil(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/gone/", map[string]any{})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "gone", FindOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindOne_PathOptionAndErrors(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/publication/xyz/", map[string]any{"bbid": "xyz", "name": "Pub"})
	ft.on("/publication/", map[string]any{"objects": []any{}})

	got, err := e.FindOne(context.Background(), reg.Lookup("Publication"), "", FindOptions{Path: "/publication/xyz/"})
	require.NoError(t, err)
	assert.Equal(t, "Pub", got["name"])

	_, err = e.FindOne(context.Background(), reg.Lookup("Publication"), "", FindOptions{})
	assert.ErrorIs(t, err, ErrNoIDOrPath)

	_, err = e.FindOne(context.Background(), reg.Lookup("Orphan"), "x", FindOptions{})
	assert.ErrorIs(t, err, ErrNoEndpoint)

	_, err = e.FindOne(context.Background(), reg.Lookup("Publication"), "", FindOptions{Path: "/publication/"})
	assert.ErrorIs(t, err, ErrPayloadShape)
}

func TestFindOne_AbstractDispatchesToChild(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/entity/abc123/", map[string]any{
		"_type": "Edition", "bbid": "abc123", "release_date": "1999", "name": "not an edition field",
	})

	got, err := e.FindOne(context.Background(), reg.Lookup("Entity"), "", FindOptions{Path: "/entity/abc123/"})
	require.NoError(t, err)
	assert.Equal(t, "Edition", got["_type"])
	assert.Equal(t, "1999", got["release_date"])
	_, present := got["name"]
	assert.False(t, present)
}

func TestFindOne_AbstractUnknownChild(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/entity/abc123/", map[string]any{"_type": "Creator", "bbid": "abc123"})
	ft.on("/entity/untyped/", map[string]any{"bbid": "untyped"})

	_, err := e.FindOne(context.Background(), reg.Lookup("Entity"), "", FindOptions{Path: "/entity/abc123/"})
	assert.ErrorIs(t, err, ErrNoSuchChild)

	_, err = e.FindOne(context.Background(), reg.Lookup("Entity"), "", FindOptions{Path: "/entity/untyped/"})
	assert.ErrorIs(t, err, ErrNoSuchChild)
}

func TestFindOne_UnresolvedModelReference(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{"bbid": "abc123", "publisher": "/publisher/p/"})

	_, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{
		Populate: []string{"publisher"},
	})
	assert.ErrorIs(t, err, ErrUnresolvedModelReference)
}

func TestFindOne_ReferenceFailureFailsEntity(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/abc123/", map[string]any{
		"bbid": "abc123", "publication": "/publication/missing/", "identifiers": "/ids/",
	})
	ft.on("/ids/", map[string]any{"objects": []any{}})

	got, err := e.FindOne(context.Background(), reg.Lookup("Edition"), "abc123", FindOptions{
		Populate: []string{"publication", "identifiers"},
	})
	require.Error(t, err)
	assert.Nil(t, got)

	var se *ws.StatusError
	assert.True(t, errors.As(err, &se))
}

func TestFind_PreservesOrder(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/edition/", map[string]any{"objects": []any{
		map[string]any{"bbid": "a", "publication": "/publication/a/"},
		map[string]any{"bbid": "b", "publication": "/publication/b/"},
		map[string]any{"bbid": "c", "publication": "/publication/c/"},
	}})
	for _, id := range []string{"a", "b", "c"} {
		ft.on("/publication/"+id+"/", map[string]any{"bbid": "pub-" + id})
	}
	ft.delays["/publication/a/"] = 60 * time.Millisecond
	ft.delays["/publication/b/"] = 30 * time.Millisecond

	got, err := e.Find(context.Background(), reg.Lookup("Edition"), FindOptions{Populate: []string{"publication"}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, got[i]["bbid"])
		assert.Equal(t, Entity{"bbid": "pub-" + id}, got[i]["publication"])
	}
}

func TestFind_Errors(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/publication/", map[string]any{"bbid": "not a list"})

	_, err := e.Find(context.Background(), reg.Lookup("Orphan"), FindOptions{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
	assert.Empty(t, ft.Calls())

	_, err = e.Find(context.Background(), reg.Lookup("Publication"), FindOptions{})
	assert.ErrorIs(t, err, ErrPayloadShape)
}

func TestFind_ForwardsParamsAndTokens(t *testing.T) {
	e, ft, reg := setup(t)
	ft.on("/publication/", map[string]any{"objects": []any{}})
	ft.on("/secret/", map[string]any{"objects": []any{}})
	session := &metadata.Session{BearerToken: "session-token"}

	_, err := e.Find(context.Background(), reg.Lookup("Publication"), FindOptions{AccessToken: "explicit", Session: session})
	require.NoError(t, err)
	_, err = e.Find(context.Background(), reg.Lookup("Publication"), FindOptions{Session: session})
	require.NoError(t, err)
	_, err = e.Find(context.Background(), reg.Lookup("Secret"), FindOptions{Session: session})
	require.NoError(t, err)

	calls := ft.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "explicit", calls[0].Token)
	assert.Equal(t, "", calls[1].Token)
	assert.Equal(t, "session-token", calls[2].Token)
}

func TestWrites_ProjectFieldsAndForwardToken(t *testing.T) {
	e, ft, reg := setup(t)
	edition := reg.Lookup("Edition")
	session := &metadata.Session{BearerToken: "tok"}
	data := map[string]any{
		"bbid":         "abc123",
		"release_date": "2020-01-01",
		"unknown":      "dropped",
	}

	resp, err := e.Create(context.Background(), edition, data, WriteOptions{Session: session})
	require.NoError(t, err)
	assert.Equal(t, "created at /edition/", resp["revision"])

	_, err = e.Update(context.Background(), edition, "abc123", data, WriteOptions{Session: session})
	require.NoError(t, err)

	_, err = e.Delete(context.Background(), edition, "abc123", map[string]any{"note": "dup"}, WriteOptions{})
	require.NoError(t, err)

	calls := ft.Calls()
	require.Len(t, calls, 3)

	assert.Equal(t, call{Method: "POST", Path: "/edition/", Token: "tok", Body: map[string]any{
		"bbid": "abc123", "release_date": "2020-01-01",
	}}, calls[0])
	assert.Equal(t, call{Method: "PUT", Path: "/edition/abc123/", Token: "tok", Body: map[string]any{
		"bbid": "abc123", "release_date": "2020-01-01",
	}}, calls[1])
	assert.Equal(t, call{Method: "DELETE", Path: "/edition/abc123/", Body: map[string]any{"note": "dup"}}, calls[2])
}

func TestWrites_AbstractModelRejected(t *testing.T) {
	e, ft, reg := setup(t)
	entity := reg.Lookup("Entity")

	_, err := e.Create(context.Background(), entity, map[string]any{"bbid": "x"}, WriteOptions{})
	assert.ErrorIs(t, err, ErrAbstractModel)
	_, err = e.Update(context.Background(), entity, "x", nil, WriteOptions{})
	assert.ErrorIs(t, err, ErrAbstractModel)
	_, err = e.Delete(context.Background(), entity, "x", nil, WriteOptions{})
	assert.ErrorIs(t, err, ErrAbstractModel)

	assert.Empty(t, ft.Calls())
}

func TestWrites_NoEndpointOrID(t *testing.T) {
	e, ft, reg := setup(t)

	_, err := e.Create(context.Background(), reg.Lookup("Orphan"), nil, WriteOptions{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
	_, err = e.Update(context.Background(), reg.Lookup("Edition"), "", nil, WriteOptions{})
	assert.ErrorIs(t, err, ErrNoIDOrPath)
	_, err = e.Delete(context.Background(), reg.Lookup("Edition"), "", nil, WriteOptions{})
	assert.ErrorIs(t, err, ErrNoIDOrPath)

	assert.Empty(t, ft.Calls())
}

func TestPopulate(t *testing.T) {
	assert.Equal(t, []string{"publication", "publisher"}, Populate(" publication, ,publisher"))
	assert.Nil(t, Populate(""))
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrNoEndpoint, 400},
		{ErrAbstractModel, 400},
		{ErrNoSuchChild, 502},
		{&ws.StatusError{StatusCode: 404}, 404},
		{&ws.StatusError{StatusCode: 401}, 401},
		{&ws.StatusError{StatusCode: 500}, 502},
		{NotFoundError("Edition", "x"), 404},
	}
	for _, tc := range cases {
		got := ToAppError(tc.err)
		require.NotNil(t, got, "%v", tc.err)
		assert.Equal(t, tc.status, got.Status, "%v", tc.err)
	}
	assert.Nil(t, ToAppError(errors.New("boom")))
}
