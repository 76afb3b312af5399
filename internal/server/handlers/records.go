package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/maruel/csvdb/internal/csvdb"
	"github.com/maruel/csvdb/internal/errors"
)

// RecordHandler serves the records of one table.
type RecordHandler struct {
	table *csvdb.Table

	// alloc serializes NextID with the Insert that consumes the identifier.
	alloc sync.Mutex
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(table *csvdb.Table) *RecordHandler {
	return &RecordHandler{table: table}
}

// GetTableRequest is a request to describe the table.
type GetTableRequest struct{}

// GetTableResponse describes the table.
type GetTableResponse struct {
	Path      string   `json:"path"`
	Columns   []string `json:"columns"`
	KeyColumn string   `json:"keyColumn"`
	Rows      int      `json:"rows"`
	NextID    int64    `json:"nextId"`
}

// GetSchemaRequest is a request for the JSON schema of a record.
type GetSchemaRequest struct{}

// ListRecordsRequest is a request to list records.
//
// Without column every record is returned. With column, records whose value
// contains like, case-insensitively, are returned when like is set, else the
// records whose value equals value.
type ListRecordsRequest struct {
	Column string `query:"column"`
	Value  string `query:"value"`
	Like   string `query:"like"`
	Offset int    `query:"offset"`
	Limit  int    `query:"limit"`
}

// ListRecordsResponse is a page of records.
type ListRecordsResponse struct {
	Records []csvdb.Record `json:"records"`
	Total   int            `json:"total"`
}

// GetRecordRequest is a request to get a record by key.
type GetRecordRequest struct {
	ID string `path:"id"`
}

// RecordResponse holds one record.
type RecordResponse struct {
	Record csvdb.Record `json:"record"`
}

// CreateRecordRequest is a request to append a record.
type CreateRecordRequest struct {
	Record csvdb.Record `json:"record"`
}

// UpdateRecordRequest is a request to replace a record.
type UpdateRecordRequest struct {
	ID     string       `path:"id"`
	Record csvdb.Record `json:"record"`
}

// DeleteRecordRequest is a request to delete the last record with the key, or
// every one when All is set.
type DeleteRecordRequest struct {
	ID  string `path:"id"`
	All bool   `query:"all"`
}

// DeleteRecordResponse reports how many records were removed.
type DeleteRecordResponse struct {
	Deleted int `json:"deleted"`
}

// GetTable describes the table.
func (h *RecordHandler) GetTable(ctx context.Context, req GetTableRequest) (*GetTableResponse, error) {
	if err := h.table.Err(); err != nil {
		return nil, errors.FromTable(err)
	}
	// An exhausted key space is reported as 0, the table stays readable.
	next, _ := h.table.NextID("")
	return &GetTableResponse{
		Path:      h.table.Path(),
		Columns:   h.table.Columns(),
		KeyColumn: h.table.KeyColumn(),
		Rows:      h.table.Len(),
		NextID:    next,
	}, nil
}

// GetSchema returns the JSON schema of a record.
func (h *RecordHandler) GetSchema(ctx context.Context, req GetSchemaRequest) (*jsonschema.Schema, error) {
	if err := h.table.Err(); err != nil {
		return nil, errors.FromTable(err)
	}
	return h.table.JSONSchema(), nil
}

// ListRecords returns a page of the matching records.
func (h *RecordHandler) ListRecords(ctx context.Context, req ListRecordsRequest) (*ListRecordsResponse, error) {
	if err := h.table.Err(); err != nil {
		return nil, errors.FromTable(err)
	}
	if req.Offset < 0 || req.Limit < 0 {
		return nil, errors.BadRequest("offset and limit must be >= 0")
	}
	var rows []csvdb.Record
	switch {
	case req.Column == "":
		rows = h.table.SelectAll()
	case req.Like != "":
		rows = h.table.SearchLike(req.Column, req.Like)
	default:
		rows = h.table.SearchExact(req.Column, req.Value)
	}
	total := len(rows)
	rows = rows[min(req.Offset, total):]
	if req.Limit > 0 && req.Limit < len(rows) {
		rows = rows[:req.Limit]
	}
	return &ListRecordsResponse{Records: rows, Total: total}, nil
}

// GetRecord returns the first record with the key.
func (h *RecordHandler) GetRecord(ctx context.Context, req GetRecordRequest) (*RecordResponse, error) {
	if err := h.table.Err(); err != nil {
		return nil, errors.FromTable(err)
	}
	if !csvdb.IsNumeric(req.ID) {
		return nil, errors.FromTable(csvdb.ErrInvalidKey)
	}
	row, ok := h.table.FindByKey(req.ID, "")
	if !ok {
		return nil, errors.NotFound("record").WithDetail("id", req.ID)
	}
	return &RecordResponse{Record: row}, nil
}

// CreateRecord appends a record. A missing or empty key is allocated with
// NextID.
func (h *RecordHandler) CreateRecord(ctx context.Context, req CreateRecordRequest) (*RecordResponse, error) {
	if len(req.Record) == 0 {
		return nil, errors.FromTable(csvdb.ErrEmptyRecord)
	}
	key := h.table.KeyColumn()
	row := req.Record.Clone()
	h.alloc.Lock()
	defer h.alloc.Unlock()
	if row[key] == "" {
		id, err := h.table.NextID("")
		if err != nil {
			return nil, errors.FromTable(err)
		}
		row[key] = strconv.FormatInt(id, 10)
	}
	if err := h.table.Insert(row); err != nil {
		return nil, errors.FromTable(err)
	}
	slog.InfoContext(ctx, "Inserted record", key, row[key], "sub", SubjectFromContext(ctx))
	return &RecordResponse{Record: row}, nil
}

// UpdateRecord replaces the first record with the key. The key column is set
// to the id of the path when the record omits it.
func (h *RecordHandler) UpdateRecord(ctx context.Context, req UpdateRecordRequest) (*RecordResponse, error) {
	if len(req.Record) == 0 {
		return nil, errors.FromTable(csvdb.ErrEmptyRecord)
	}
	key := h.table.KeyColumn()
	row := req.Record.Clone()
	if _, ok := row[key]; !ok {
		row[key] = req.ID
	}
	if err := h.table.Update(req.ID, row, ""); err != nil {
		return nil, errors.FromTable(err)
	}
	slog.InfoContext(ctx, "Updated record", key, req.ID, "sub", SubjectFromContext(ctx))
	return &RecordResponse{Record: row}, nil
}

// DeleteRecord removes the records with the key.
func (h *RecordHandler) DeleteRecord(ctx context.Context, req DeleteRecordRequest) (*DeleteRecordResponse, error) {
	n, err := h.table.Delete(req.ID, "", !req.All)
	if err != nil {
		return nil, errors.FromTable(err)
	}
	slog.InfoContext(ctx, "Deleted records", h.table.KeyColumn(), req.ID, "count", n, "sub", SubjectFromContext(ctx))
	return &DeleteRecordResponse{Deleted: n}, nil
}
