package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder builds PostgREST requests against one table.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
	offset  int
	single  bool
	count   string
}

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:  c,
		table:   table,
		filters: url.Values{},
	}
}

// Select specifies columns to select, including embedded relations.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) filter(column, op string, value any) *QueryBuilder {
	q.filters.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.filter(column, "eq", value)
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.filter(column, "gte", value)
}

// Lte adds a less-than-or-equal filter.
func (q *QueryBuilder) Lte(column string, value any) *QueryBuilder {
	return q.filter(column, "lte", value)
}

// ILike adds a case-insensitive pattern filter. Use * as the wildcard.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return q.filter(column, "ilike", pattern)
}

// In adds an IN filter.
func (q *QueryBuilder) In(column string, values []string) *QueryBuilder {
	return q.filter(column, "in", "("+strings.Join(values, ",")+")")
}

// Or adds a disjunction, e.g. Or("buyer_id.eq.x,seller_id.eq.x").
func (q *QueryBuilder) Or(expr string) *QueryBuilder {
	q.filters.Add("or", "("+expr+")")
	return q
}

// Order adds an ORDER BY clause.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit sets the LIMIT.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset sets the OFFSET.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single expects exactly one row; zero rows becomes a not-found error.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Count asks PostgREST for a total row count (exact, planned, estimated).
func (q *QueryBuilder) Count(countType string) *QueryBuilder {
	q.count = countType
	return q
}

func (q *QueryBuilder) url(withPaging bool) string {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if withPaging {
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", strconv.Itoa(q.limit))
		}
		if q.offset > 0 {
			params.Set("offset", strconv.Itoa(q.offset))
		}
	}

	u := q.client.baseURL + "/rest/v1/" + url.PathEscape(q.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (q *QueryBuilder) header(prefer ...string) http.Header {
	h := http.Header{}
	if q.single {
		h.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if q.count != "" {
		prefer = append(prefer, "count="+q.count)
	}
	if len(prefer) > 0 {
		h.Set("Prefer", strings.Join(prefer, ","))
	}
	return h
}

// Execute runs a SELECT.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	resp, err := q.client.doJSON(ctx, http.MethodGet, q.url(true), nil, q.header())
	if err != nil {
		return nil, err
	}
	return q.normalize(resp), nil
}

// Insert inserts one row or a slice of rows and returns the representation.
func (q *QueryBuilder) Insert(ctx context.Context, data any) (*Response, error) {
	resp, err := q.client.doJSON(ctx, http.MethodPost, q.url(false), data, q.header("return=representation"))
	if err != nil {
		return nil, err
	}
	return q.normalize(resp), nil
}

// Update patches rows matching the filters.
func (q *QueryBuilder) Update(ctx context.Context, data any) (*Response, error) {
	resp, err := q.client.doJSON(ctx, http.MethodPatch, q.url(false), data, q.header("return=representation"))
	if err != nil {
		return nil, err
	}
	return q.normalize(resp), nil
}

// Delete removes rows matching the filters.
func (q *QueryBuilder) Delete(ctx context.Context) (*Response, error) {
	resp, err := q.client.doJSON(ctx, http.MethodDelete, q.url(false), nil, q.header("return=representation"))
	if err != nil {
		return nil, err
	}
	return q.normalize(resp), nil
}

// PostgREST answers a single-object request with zero rows using 406; map
// it onto the not-found code so callers only check IsNotFound.
func (q *QueryBuilder) normalize(resp *Response) *Response {
	if q.single && resp.StatusCode == http.StatusNotAcceptable {
		if e := parseError(resp.StatusCode, resp.Body); e.Code == "" {
			resp.Body = []byte(`{"code":"` + codeNoRows + `","message":"no rows returned"}`)
		}
	}
	return resp
}
