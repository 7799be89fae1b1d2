package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrewwphillips/hackernews/internal/handler"
)

const (
	errorMessage = "resolver func error"
)

// codedError is returned from a resolver to check that its code is added to the error extensions
type codedError struct{ code string }

func (e codedError) Error() string { return "coded " + e.code }
func (e codedError) Code() string  { return e.code }

var (
	errorFuncData    = struct{ V func() (int, error) }{func() (int, error) { return 0, errors.New(errorMessage) }}
	panicFuncData    = struct{ V func() int }{func() int { panic("oops") }}
	nullNonNullData  = struct{ V *int }{}
	partialData      = struct {
		A func() (*int, error)
		B int
	}{func() (*int, error) { return nil, errors.New(errorMessage) }, 2}
	codedData = struct {
		A func() (*int, error)
	}{func() (*int, error) { return nil, codedError{"BAD_THING"} }}
	emptyCodeData = struct {
		A func() (*int, error)
	}{func() (*int, error) { return nil, codedError{""} }}
	wrappedCodeData = struct {
		A func() (*int, error)
	}{func() (*int, error) { return nil, &wrapper{codedError{"WRAPPED"}} }}
	nestedErrorData = struct{ N N2 }{N2{V: func() (int, error) { return 0, errors.New(errorMessage) }}}
	listErrorData   = struct{ L []N2 }{[]N2{
		{V: func() (int, error) { return 1, nil }},
		{V: func() (int, error) { return 0, errors.New(errorMessage) }},
	}}
)

type (
	N2      struct{ V func() (int, error) }
	wrapper struct{ err error }
)

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

// errorData is for testing GraphQL error responses returned for a bad query or a resolver error
var errorData = map[string]struct {
	schema    string      // GraphQL schema
	data      interface{} // corresponding matching struct
	query     string      // GraphQL query to send to the handler (query syntax)
	variables string      // GraphQL variables to use with the query (JSON)
	expData   interface{} // expected "data" decoded from the response
	expError  string      // expected (first) error message
	expPath   []interface{}
	expCode   interface{} // expected extensions.code (if any)
}{
	"FuncError": {"type Query{v:Int!}", errorFuncData, `{v}`, "", nil, errorMessage, []interface{}{"v"}, nil},
	"Panic":     {"type Query{v:Int!}", panicFuncData, `{v}`, "", nil, "internal error", []interface{}{"v"}, nil},
	"NullNonNull": {
		"type Query{v:Int!}", nullNonNullData, `{v}`, "", nil,
		"non-nullable field Query.v resolved to null", []interface{}{"v"}, nil,
	},
	"Partial": {
		"type Query{a:Int b:Int!}", partialData, `{a b}`, "",
		JsonObject{"a": nil, "b": 2.0}, errorMessage, []interface{}{"a"}, nil,
	},
	"Code": {
		"type Query{a:Int}", codedData, `{a}`, "",
		JsonObject{"a": nil}, "coded BAD_THING", []interface{}{"a"}, "BAD_THING",
	},
	"EmptyCode": {
		"type Query{a:Int}", emptyCodeData, `{a}`, "",
		JsonObject{"a": nil}, "coded ", []interface{}{"a"}, nil,
	},
	"WrappedCode": {
		"type Query{a:Int}", wrappedCodeData, `{a}`, "",
		JsonObject{"a": nil}, "wrapped: coded WRAPPED", []interface{}{"a"}, "WRAPPED",
	},
	"Bubble": {
		"type Query{n:N} type N{v:Int!}", nestedErrorData, `{n{v}}`, "",
		JsonObject{"n": nil}, errorMessage, []interface{}{"n", "v"}, nil,
	},
	"BubbleList": {
		"type Query{l:[N!]} type N{v:Int!}", listErrorData, `{l{v}}`, "",
		JsonObject{"l": nil}, errorMessage, []interface{}{"l", 1.0, "v"}, nil,
	},
	"NullableElement": {
		"type Query{l:[N]!} type N{v:Int!}", listErrorData, `{l{v}}`, "",
		JsonObject{"l": []interface{}{JsonObject{"v": 1.0}, nil}}, errorMessage, []interface{}{"l", 1.0, "v"}, nil,
	},
	"QueryError":   {"type Query{v:Int!}", errorFuncData, `x`, "", nil, `Unexpected Name "x"`, nil, nil},
	"UnknownQuery": {"type Query{v:Int!}", errorFuncData, `{ unknown }`, "", nil, `Cannot query field "unknown" on type "Query".`, nil, nil},
	"MissingVar": {
		argsSchema, paramData, `query($v: Int!) { dbl(v: $v) }`, "", nil, "must be defined",
		[]interface{}{"variable", "v"}, nil,
	},
	"BadVar": {
		argsSchema, paramData, `query($v: Int!) { dbl(v: $v) }`, `{"v": "abc"}`, nil, "cannot use string as Int",
		[]interface{}{"variable", "v"}, nil,
	},
	"FloatForInt": {
		argsSchema, paramData, `query($v: Int!) { dbl(v: $v) }`, `{"v": 1.5}`, nil, `argument "v": 1.5 is not an integer`,
		[]interface{}{"dbl"}, nil,
	},
}

func TestErrors(t *testing.T) {
	for name, testData := range errorData {
		h := handler.New(testData.schema, testData.data, nil)

		writer := post(h, testData.query, "", testData.variables)

		// All of these tests should give status OK
		if writer.Result().StatusCode != http.StatusOK {
			t.Errorf("%12s: Unexpected response code %d", name, writer.Code)
			continue
		}
		result := decode(t, writer)

		// Check that the resulting GraphQL result (error and data)
		Assertf(t, reflect.DeepEqual(result.Data, testData.expData), "%12s: Expected data %v and got %v", name, testData.expData, result.Data)
		if len(result.Errors) == 0 {
			t.Errorf("%12s: Expected error %q, got none", name, testData.expError)
			continue
		}
		Assertf(t, result.Errors[0].Message == testData.expError, "%12s: Expected error %q, got %v", name, testData.expError, result.Errors)
		Assertf(t, reflect.DeepEqual(result.Errors[0].Path, testData.expPath), "%12s: Expected path %v, got %v", name, testData.expPath, result.Errors[0].Path)
		var code interface{}
		if result.Errors[0].Extensions != nil {
			code = result.Errors[0].Extensions["code"]
		}
		Assertf(t, code == testData.expCode, "%12s: Expected code %v, got %v", name, testData.expCode, code)
	}
}

// TestErrorLocation checks that the location of the field in the query is reported
func TestErrorLocation(t *testing.T) {
	h := handler.New("type Query{a:Int b:Int!}", partialData, nil)
	result := decode(t, post(h, "{\n  b\n  a\n}", "", ""))

	Assertf(t, len(result.Errors) == 1, "Expected one error, got %v", result.Errors)
	if len(result.Errors) == 1 {
		loc := result.Errors[0].Locations
		Assertf(t, len(loc) == 1 && loc[0].Line == 3 && loc[0].Column == 3, "Expected location 3:3, got %v", loc)
	}
}

func TestBadRequests(t *testing.T) {
	h := handler.New(stringSchema, stringData, nil)
	badData := map[string]struct {
		method string
		body   string
		status int
	}{
		"BadJSON":   {http.MethodPost, `{"query":`, http.StatusBadRequest},
		"NoQuery":   {http.MethodPost, `{}`, http.StatusBadRequest},
		"BadMethod": {http.MethodPut, `{"query":"{message}"}`, http.StatusMethodNotAllowed},
	}
	for name, data := range badData {
		request := httptest.NewRequest(data.method, "/", strings.NewReader(data.body))
		writer := httptest.NewRecorder()
		h.ServeHTTP(writer, request)

		Assertf(t, writer.Code == data.status, "%10s: Expected status %d, got %d", name, data.status, writer.Code)
		result := decode(t, writer)
		Assertf(t, result.Data == nil && len(result.Errors) == 1, "%10s: Expected a single error, got %v", name, result)
	}
}

// TestCancelled checks that resolvers still running after the request context is cancelled do not
// disturb the result (run with -race)
func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started, finished sync.WaitGroup
	data := struct {
		A func(context.Context) (*int, error)
	}{func(ctx context.Context) (*int, error) {
		defer finished.Done()
		started.Done()
		<-ctx.Done()
		time.Sleep(time.Millisecond)
		return nil, errors.New("late")
	}}
	h := handler.New("type Query{a:Int}", data, nil)

	started.Add(4)
	finished.Add(4)
	go func() {
		started.Wait()
		cancel()
	}()
	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"{ a b: a c: a d: a }"}`))
	request.Header.Add("Content-Type", "application/json")
	writer := httptest.NewRecorder()
	h.ServeHTTP(writer, request.WithContext(ctx))
	finished.Wait()

	Assertf(t, writer.Code == http.StatusOK, "Expected status OK, got %d", writer.Code)
	result := decode(t, writer)
	Assertf(t, reflect.DeepEqual(result.Data, JsonObject{"a": nil, "b": nil, "c": nil, "d": nil}),
		"Expected null fields, got %v", result.Data)
	Assertf(t, len(result.Errors) == 4, "Expected an error per field, got %v", result.Errors)
	for _, e := range result.Errors {
		Assertf(t, e.Message == context.Canceled.Error() || e.Message == "late", "Unexpected error %q", e.Message)
	}
}
