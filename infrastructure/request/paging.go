package request

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Paging selects one of the supported paging strategies via its populated
// fields. ItemsField is the dotted path to the page's list; empty means the
// response body is the list itself.
type Paging struct {
	ItemsField string

	// Offset/limit: increment OffsetField by OffsetIncrease until a page
	// comes back empty.
	OffsetField    string
	OffsetStart    int
	OffsetIncrease int

	// Page/per_page: increment PageField by 1 until a page comes back empty.
	PageField string
	PageStart int

	// Token-based: copy ResponseTokenField from each response into
	// RequestTokenField; stop when absent.
	RequestTokenField  string
	ResponseTokenField string

	// URL-based: follow the Direction link, optionally nested under
	// PagingEnvelope; stop when absent.
	Direction      string
	PagingEnvelope string

	// Cursor-by-max-id: derive max_id = min(item id) - 1 from each page.
	MaxIDField  string
	ItemIDField string

	// Stop short-circuits iteration when it returns true, checked after each
	// page is delivered.
	Stop func() bool
}

// RequestWithPaging iterates pages, invoking onPage per page in order. The
// concatenation of delivered pages equals the provider's full list for the
// endpoint.
func (e *Engine) RequestWithPaging(ctx context.Context, args *Args, paging Paging, onPage func([]interface{}) error) error {
	if args.Query == nil {
		args.Query = url.Values{}
	}

	offset := paging.OffsetStart
	page := paging.PageStart
	if paging.PageField != "" && page == 0 {
		page = 1
	}
	if paging.OffsetField != "" {
		args.Query.Set(paging.OffsetField, strconv.Itoa(offset))
	}
	if paging.PageField != "" {
		args.Query.Set(paging.PageField, strconv.Itoa(page))
	}

	for {
		resp, err := e.Request(ctx, args)
		if err != nil {
			return err
		}

		items, ok := DigPath(resp.Data, paging.ItemsField).([]interface{})
		if !ok || len(items) == 0 {
			return nil
		}
		if err := onPage(items); err != nil {
			return err
		}
		if paging.Stop != nil && paging.Stop() {
			return nil
		}

		switch {
		case paging.OffsetField != "":
			increase := paging.OffsetIncrease
			if increase == 0 {
				increase = len(items)
			}
			offset += increase
			args.Query.Set(paging.OffsetField, strconv.Itoa(offset))

		case paging.PageField != "":
			page++
			args.Query.Set(paging.PageField, strconv.Itoa(page))

		case paging.RequestTokenField != "":
			token, ok := DigPath(resp.Data, paging.ResponseTokenField).(string)
			if !ok || token == "" {
				return nil
			}
			args.Query.Set(paging.RequestTokenField, token)

		case paging.Direction != "":
			envelope := resp.Data
			if paging.PagingEnvelope != "" {
				envelope = DigPath(resp.Data, paging.PagingEnvelope)
			}
			next, ok := DigPath(envelope, paging.Direction).(string)
			if !ok || next == "" {
				return nil
			}
			args.FullURL = next
			args.BaseURL = ""
			args.Path = ""
			args.Query = url.Values{}

		case paging.MaxIDField != "":
			minID, err := minItemID(items, paging.ItemIDField)
			if err != nil {
				return err
			}
			args.Query.Set(paging.MaxIDField, strconv.FormatInt(minID-1, 10))

		default:
			return nil // single page
		}
	}
}

func minItemID(items []interface{}, idField string) (int64, error) {
	if idField == "" {
		idField = "id"
	}
	var min int64
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("paging: item %d is not an object", i)
		}
		var id int64
		switch v := obj[idField].(type) {
		case float64:
			id = int64(v)
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("paging: item %d has non-numeric id %q", i, v)
			}
			id = parsed
		default:
			return 0, fmt.Errorf("paging: item %d missing id field %q", i, idField)
		}
		if i == 0 || id < min {
			min = id
		}
	}
	return min, nil
}
