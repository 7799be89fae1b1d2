package handler

// execute.go handles the execution of a GraphQL request

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

type (
	// gqlRequest decodes and handles each GraphQL request
	gqlRequest struct {
		h        *Handler
		readOnly bool // set for GET requests where mutations are not allowed

		// These are decoded from the http request body (JSON) or URL query parameters
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	// gqlResult contains the result (or errors) of the request to be encoded in JSON
	gqlResult struct {
		Data   interface{}   `json:"data,omitempty"`
		Errors gqlerror.List `json:"errors,omitempty"`

		status int // HTTP status if not 200 (OK)
	}
)

// nullData is used for the "data" of the result when a null propagated all the way to the root
var nullData = json.RawMessage("null")

// Execute parses and runs the request and returns the result
func (g *gqlRequest) Execute(ctx context.Context) (r gqlResult) {
	start := time.Now()
	defer func() {
		g.h.log.Debug().
			Str("operation", g.OperationName).
			Int("errors", len(r.Errors)).
			Dur("elapsed", time.Since(start)).
			Msg("graphql request")
	}()

	// First analyse and validate the query string
	query, errs := gqlparser.LoadQuery(g.h.schema, g.Query)
	if errs != nil {
		r.Errors = errs
		return
	}

	operation, err := g.operation(query.Operations)
	if err != nil {
		r.Errors = gqlerror.List{err}
		return
	}
	if g.readOnly && operation.Operation != ast.Query {
		r.Errors = gqlerror.List{gqlerror.Errorf("%s operations must use POST", operation.Operation)}
		r.status = http.StatusMethodNotAllowed
		return
	}

	op := gqlOperation{Handler: g.h}
	if op.variables, err = g.variables(operation); err != nil {
		r.Errors = gqlerror.List{err}
		return
	}

	var root interface{}
	var rootDef *ast.Definition
	switch operation.Operation {
	case ast.Query:
		root, rootDef = g.h.qData, g.h.schema.Query
	case ast.Mutation:
		op.isMutation = true // mutations are run sequentially
		root, rootDef = g.h.mData, g.h.schema.Mutation
	default:
		r.Errors = gqlerror.List{gqlerror.Errorf("%s operations are not supported", operation.Operation)}
		return
	}

	if data, ok := op.GetSelections(ctx, operation.SelectionSet, derefValue(root), rootDef, nil); ok {
		r.Data = data
	} else {
		r.Data = nullData // null bubbled up to the root
	}
	r.Errors = op.finish()
	return
}

// operation finds the operation to execute using the requested operation name
func (g *gqlRequest) operation(operations ast.OperationList) (*ast.OperationDefinition, *gqlerror.Error) {
	if g.OperationName == "" {
		if len(operations) != 1 {
			return nil, gqlerror.Errorf("operationName is required when the document has %d operations", len(operations))
		}
		return operations[0], nil
	}
	for _, operation := range operations {
		if operation.Name == g.OperationName {
			return operation, nil
		}
	}
	return nil, gqlerror.Errorf("operation %q not found", g.OperationName)
}

// variables coerces the request variables to the types declared by the operation
func (g *gqlRequest) variables(operation *ast.OperationDefinition) (map[string]interface{}, *gqlerror.Error) {
	if len(operation.VariableDefinitions) == 0 {
		return nil, nil
	}
	vars, err := validator.VariableValues(g.h.schema, operation, g.Variables)
	if err != nil {
		return nil, gqlerror.WrapIfUnwrapped(err)
	}
	return vars, nil
}
