// Package ingest reconciles parsed scan records against the document store
// and writes the result back in a single bulk request.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/anstrom/surfacesync/internal/report"
)

// Action is the kind of bulk operation emitted for a host.
type Action string

const (
	// ActionCreate indexes a new document.
	ActionCreate Action = "create"
	// ActionUpdate overwrites ip_address and ports of an existing document.
	ActionUpdate Action = "update"
)

// UpdateScriptSource is the painless script applied to existing documents.
const UpdateScriptSource = "ctx._source.ip_address = params.ip_address; ctx._source.ports = params.ports;"

// Document is the full document written on create.
type Document struct {
	Hostname   string             `json:"hostname"`
	IPAddress  string             `json:"ip_address"`
	Ports      []report.PortEntry `json:"ports"`
	Subsidiary string             `json:"subsidiary"`
}

// UpdateParams are the only fields overwritten on update.
type UpdateParams struct {
	IPAddress string             `json:"ip_address"`
	Ports     []report.PortEntry `json:"ports"`
}

// Script is a stored-script update body.
type Script struct {
	Source string       `json:"source"`
	Lang   string       `json:"lang"`
	Params UpdateParams `json:"params"`
}

// Operation is one unit of the bulk payload.
type Operation struct {
	Action   Action
	Index    string
	ID       string
	Hostname string

	// Document is set for creates.
	Document *Document
	// Script is set for updates.
	Script *Script
}

// NewCreate builds a create operation carrying the whole document.
func NewCreate(index, subsidiary string, rec report.HostRecord) Operation {
	return Operation{
		Action:   ActionCreate,
		Index:    index,
		Hostname: rec.Hostname,
		Document: &Document{
			Hostname:   rec.Hostname,
			IPAddress:  rec.IPAddress,
			Ports:      nonNilPorts(rec.Ports),
			Subsidiary: subsidiary,
		},
	}
}

// NewUpdate builds an update of document id that sets only ip_address and ports.
func NewUpdate(index, id string, rec report.HostRecord) Operation {
	return Operation{
		Action:   ActionUpdate,
		Index:    index,
		ID:       id,
		Hostname: rec.Hostname,
		Script: &Script{
			Source: UpdateScriptSource,
			Lang:   "painless",
			Params: UpdateParams{
				IPAddress: rec.IPAddress,
				Ports:     nonNilPorts(rec.Ports),
			},
		},
	}
}

func nonNilPorts(ports []report.PortEntry) []report.PortEntry {
	if ports == nil {
		return []report.PortEntry{}
	}
	return ports
}

type indexMeta struct {
	Index struct {
		Index string `json:"_index"`
	} `json:"index"`
}

type updateMeta struct {
	Update struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"update"`
}

type scriptBody struct {
	Script *Script `json:"script"`
}

// Lines returns the action-metadata line and the data line of op,
// without trailing newlines.
func (op Operation) Lines() (meta, data []byte, err error) {
	switch op.Action {
	case ActionCreate:
		if op.Document == nil {
			return nil, nil, fmt.Errorf("create operation for %q has no document", op.Hostname)
		}
		var m indexMeta
		m.Index.Index = op.Index
		if meta, err = json.Marshal(m); err != nil {
			return nil, nil, err
		}
		data, err = json.Marshal(op.Document)
	case ActionUpdate:
		if op.Script == nil || op.ID == "" {
			return nil, nil, fmt.Errorf("update operation for %q needs an id and a script", op.Hostname)
		}
		var m updateMeta
		m.Update.Index = op.Index
		m.Update.ID = op.ID
		if meta, err = json.Marshal(m); err != nil {
			return nil, nil, err
		}
		data, err = json.Marshal(scriptBody{Script: op.Script})
	default:
		return nil, nil, fmt.Errorf("unknown action %q", op.Action)
	}
	return meta, data, err
}

// BuildPayload serialises ops, in order, into a newline-delimited bulk body.
func BuildPayload(ops []Operation) ([]byte, error) {
	var buf bytes.Buffer
	for i, op := range ops {
		meta, data, err := op.Lines()
		if err != nil {
			return nil, fmt.Errorf("failed to encode operation %d: %w", i, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// CountActions returns the number of creates and updates in ops.
func CountActions(ops []Operation) (created, updated int) {
	for _, op := range ops {
		switch op.Action {
		case ActionCreate:
			created++
		case ActionUpdate:
			updated++
		}
	}
	return created, updated
}
