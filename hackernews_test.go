package hackernews_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/andrewwphillips/hackernews"
	"github.com/andrewwphillips/hackernews/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	gqlError struct {
		Message    string                 `json:"message"`
		Path       []interface{}          `json:"path"`
		Extensions map[string]interface{} `json:"extensions"`
	}
	gqlResponse struct {
		Data   map[string]interface{} `json:"data"`
		Errors []gqlError             `json:"errors"`
	}
)

func newSQLiteHandler(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.Open(&store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "hn.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return hackernews.New(st)
}

// do posts a GraphQL request to the handler and decodes the response
func do(t *testing.T, h http.Handler, query string, variables map[string]interface{}) gqlResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	writer := httptest.NewRecorder()
	h.ServeHTTP(writer, request)
	require.Equal(t, http.StatusOK, writer.Code, writer.Body.String())

	var r gqlResponse
	require.NoError(t, json.Unmarshal(writer.Body.Bytes(), &r), writer.Body.String())
	return r
}

// postLink adds a link returning its id
func postLink(t *testing.T, h http.Handler, url, description string) string {
	t.Helper()
	r := do(t, h, `mutation($url: String!, $d: String!) { postLink(url: $url, description: $d) { id } }`,
		map[string]interface{}{"url": url, "d": description})
	require.Empty(t, r.Errors)
	return r.Data["postLink"].(map[string]interface{})["id"].(string)
}

func requireError(t *testing.T, r gqlResponse, code string, contains string) {
	t.Helper()
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0].Message, contains)
	if code == "" {
		assert.Nil(t, r.Errors[0].Extensions["code"])
	} else {
		assert.Equal(t, code, r.Errors[0].Extensions["code"])
	}
}

func TestInfo(t *testing.T) {
	h := newSQLiteHandler(t)
	r := do(t, h, `{ info }`, nil)
	require.Empty(t, r.Errors)
	assert.NotEmpty(t, r.Data["info"])
}

func TestPostLink(t *testing.T) {
	h := newSQLiteHandler(t)

	r := do(t, h, `mutation { postLink(url: "http://x.com/y", description: "d") { id url description comments { id } } }`, nil)
	require.Empty(t, r.Errors)
	l := r.Data["postLink"].(map[string]interface{})
	_, err := strconv.ParseInt(l["id"].(string), 10, 64)
	assert.NoError(t, err, "id should be an integer string")
	assert.Equal(t, "http://x.com/y", l["url"])
	assert.Equal(t, "d", l["description"])
	assert.Equal(t, []interface{}{}, l["comments"])

	// no duplicate check
	assert.NotEqual(t, l["id"], postLink(t, h, "http://x.com/y", "d"))
}

func TestPostLinkInvalid(t *testing.T) {
	h := newSQLiteHandler(t)
	for _, url := range []string{"ftp://example.com/a", "http://example.com", "example.com/"} {
		r := do(t, h, `mutation($u: String!) { postLink(url: $u, description: "d") { id } }`, map[string]interface{}{"u": url})
		assert.Nil(t, r.Data, "postLink is non-null so data should be null")
		requireError(t, r, "INVALID_LINK", url)
		assert.Equal(t, []interface{}{"postLink"}, r.Errors[0].Path)
	}
	assert.Equal(t, "1", postLink(t, h, "http://x.com/y", "d"), "no link should have been stored")
}

func TestPostComment(t *testing.T) {
	h := newSQLiteHandler(t)
	id := postLink(t, h, "http://x.com/y", "d")

	r := do(t, h, `mutation($id: ID!) { postCommentOnLink(linkId: $id, body: "hi") { id body link { id url } } }`,
		map[string]interface{}{"id": id})
	require.Empty(t, r.Errors)
	c := r.Data["postCommentOnLink"].(map[string]interface{})
	assert.Equal(t, "hi", c["body"])
	assert.Equal(t, map[string]interface{}{"id": id, "url": "http://x.com/y"}, c["link"])

	r = do(t, h, `query($id: ID!) { comment(id: $id) { body link { comments { body } } } }`,
		map[string]interface{}{"id": c["id"]})
	require.Empty(t, r.Errors)
	assert.Equal(t, map[string]interface{}{
		"body": "hi",
		"link": map[string]interface{}{"comments": []interface{}{map[string]interface{}{"body": "hi"}}},
	}, r.Data["comment"])
}

func TestPostCommentErrors(t *testing.T) {
	h := newSQLiteHandler(t)
	id := postLink(t, h, "http://x.com/y", "d")

	commentData := map[string]struct {
		linkID, body string
		code         string
		contains     string
	}{
		"MissingLink": {"9999999", "hi", "LINK_NOT_FOUND", "9999999"},
		"BadID":       {"abc", "hi", "LINK_NOT_FOUND", "abc"},
		"NegativeID":  {"-1", "hi", "LINK_NOT_FOUND", "-1"},
		"EmptyBody":   {id, "", "EMPTY_COMMENT", "empty"},
		"BadIDFirst":  {"abc", "", "LINK_NOT_FOUND", "abc"}, // id is checked before the body
	}
	for name, data := range commentData {
		t.Run(name, func(t *testing.T) {
			r := do(t, h, `mutation($id: ID!, $b: String!) { postCommentOnLink(linkId: $id, body: $b) { id } }`,
				map[string]interface{}{"id": data.linkID, "b": data.body})
			assert.Nil(t, r.Data)
			requireError(t, r, data.code, data.contains)
		})
	}

	// The two "not found" failures are worded differently
	bad := do(t, h, `mutation { postCommentOnLink(linkId: "abc", body: "hi") { id } }`, nil)
	missing := do(t, h, `mutation { postCommentOnLink(linkId: "9999999", body: "hi") { id } }`, nil)
	require.Len(t, bad.Errors, 1)
	require.Len(t, missing.Errors, 1)
	assert.NotEqual(t, bad.Errors[0].Message, missing.Errors[0].Message)

	r := do(t, h, `query($id: ID) { link(id: $id) { comments { id } } }`, map[string]interface{}{"id": id})
	assert.Equal(t, map[string]interface{}{"comments": []interface{}{}}, r.Data["link"])
}

func TestLookup(t *testing.T) {
	h := newSQLiteHandler(t)
	id := postLink(t, h, "http://x.com/y", "d")

	lookupData := map[string]struct {
		query    string
		expected interface{}
	}{
		"Link":           {`{ link(id: "` + id + `") { url } }`, map[string]interface{}{"url": "http://x.com/y"}},
		"LinkIntLiteral": {`{ link(id: ` + id + `) { url } }`, map[string]interface{}{"url": "http://x.com/y"}},
		"LinkNotFound":   {`{ link(id: "12345") { url } }`, nil},
		"LinkNotNumeric": {`{ link(id: "abc") { url } }`, nil},
		"LinkNoID":       {`{ link { url } }`, nil},
		"LinkNullID":     {`{ link(id: null) { url } }`, nil},
		"Comment":        {`{ comment(id: "1") { body } }`, nil},
		"CommentBadID":   {`{ comment(id: "x1") { body } }`, nil},
	}
	for name, data := range lookupData {
		t.Run(name, func(t *testing.T) {
			r := do(t, h, data.query, nil)
			require.Empty(t, r.Errors)
			for _, v := range r.Data {
				assert.Equal(t, data.expected, v)
			}
		})
	}
}

func TestFeed(t *testing.T) {
	h := newSQLiteHandler(t)
	for i, desc := range []string{"first golang", "second", "third golang", "fourth"} {
		postLink(t, h, "http://example.com/"+strconv.Itoa(i), desc)
	}
	descriptions := func(r gqlResponse) []string {
		var s []string
		for _, l := range r.Data["feed"].([]interface{}) {
			s = append(s, l.(map[string]interface{})["description"].(string))
		}
		return s
	}

	// skip defaults to 1 so the first link is not included
	r := do(t, h, `{ feed { description } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, []string{"second", "third golang", "fourth"}, descriptions(r))

	r = do(t, h, `{ feed(skip: 2, take: 1) { description } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, []string{"third golang"}, descriptions(r))

	r = do(t, h, `query($n: String) { feed(filterNeedle: $n) { description } }`, map[string]interface{}{"n": "golang"})
	require.Empty(t, r.Errors)
	assert.Equal(t, []string{"third golang"}, descriptions(r))

	// skip applies after filtering
	r = do(t, h, `{ feed(filterNeedle: "th") { description } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, []string{"fourth"}, descriptions(r))

	// so a single match is skipped by default
	r = do(t, h, `{ feed(filterNeedle: "example.com/3") { description } }`, nil)
	require.Empty(t, r.Errors)
	assert.Empty(t, descriptions(r))

	// matches the url as well as the description
	r = do(t, h, `{ feed(filterNeedle: "example.com", take: 2) { description } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, []string{"second", "third golang"}, descriptions(r))
}

func TestFeedOutOfRange(t *testing.T) {
	h := newSQLiteHandler(t)

	rangeData := map[string]struct {
		args     string
		contains string
	}{
		"TakeTooBig":   {"take: 100", "50"},
		"TakeZero":     {"take: 0", "take"},
		"SkipZero":     {"skip: 0", "skip"},
		"SkipNegative": {"skip: -5", "-5"},
	}
	for name, data := range rangeData {
		t.Run(name, func(t *testing.T) {
			r := do(t, h, `{ feed(`+data.args+`) { id } }`, nil)
			assert.Nil(t, r.Data)
			requireError(t, r, "OUT_OF_RANGE", data.contains)
			assert.Equal(t, []interface{}{"feed"}, r.Errors[0].Path)
		})
	}
}

// fakeStore returns an error from every operation
type fakeStore struct{ err error }

func (f fakeStore) Feed(context.Context, store.Filter) ([]store.Link, error) { return nil, f.err }
func (f fakeStore) Link(context.Context, int64) (*store.Link, error)         { return nil, f.err }
func (f fakeStore) CreateLink(context.Context, string, string) (*store.Link, error) {
	return nil, f.err
}
func (f fakeStore) Comment(context.Context, int64) (*store.Comment, error) { return nil, f.err }
func (f fakeStore) CreateComment(context.Context, int64, string) (*store.Comment, error) {
	return nil, f.err
}
func (f fakeStore) CommentsByLink(context.Context, int64) ([]store.Comment, error) { return nil, f.err }

func TestOpaqueError(t *testing.T) {
	h := hackernews.New(fakeStore{errors.New("disk full")})

	r := do(t, h, `mutation { postCommentOnLink(linkId: "1", body: "hi") { id } }`, nil)
	requireError(t, r, "", "disk full")

	// Only the failing field is affected
	r = do(t, h, `{ info link(id: "1") { url } }`, nil)
	requireError(t, r, "", "disk full")
	assert.Equal(t, []interface{}{"link"}, r.Errors[0].Path)
	assert.NotEmpty(t, r.Data["info"])
	assert.Contains(t, r.Data, "link")
	assert.Nil(t, r.Data["link"])

	// validation happens before the store is used
	r = do(t, h, `mutation { postCommentOnLink(linkId: "abc", body: "hi") { id } }`, nil)
	requireError(t, r, "LINK_NOT_FOUND", "abc")

	// an opaque Error has no code
	h = hackernews.New(fakeStore{&hackernews.Error{Kind: hackernews.Opaque, Message: "database locked"}})
	r = do(t, h, `{ link(id: "1") { url } }`, nil)
	requireError(t, r, "", "database locked")
}

func TestNoStore(t *testing.T) {
	h := hackernews.New(nil)
	r := do(t, h, `{ feed { id } }`, nil)
	requireError(t, r, "", "no data store")

	r = do(t, h, `{ info }`, nil)
	require.Empty(t, r.Errors)
}

func TestOptions(t *testing.T) {
	h := hackernews.New(fakeStore{}, hackernews.NoIntrospection(true), hackernews.NoConcurrency(true))
	r := do(t, h, `{ __schema { queryType { name } } }`, nil)
	requireError(t, r, "", "introspection is disabled")

	h = hackernews.New(fakeStore{})
	r = do(t, h, `{ __type(name: "Link") { fields { name } } }`, nil)
	require.Empty(t, r.Errors)
	assert.Equal(t, map[string]interface{}{"fields": []interface{}{
		map[string]interface{}{"name": "id"},
		map[string]interface{}{"name": "description"},
		map[string]interface{}{"name": "url"},
		map[string]interface{}{"name": "comments"},
	}}, r.Data["__type"])
}
