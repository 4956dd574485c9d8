package table

import (
	"liftkeeper/internal/domain/gateway"
)

type tableInput struct {
	Table string `path:"table" doc:"Table name" example:"checklist_sessions"`
}

type selectInput struct {
	tableInput
	Filter string `query:"filter" doc:"JSON-encoded filter: {conditions, order_by, limit}"`
}

type selectOutput struct {
	Body []gateway.Row
}

type insertInput struct {
	tableInput
	Body struct {
		Rows []gateway.Row `json:"rows" minItems:"1" doc:"Rows to insert"`
	}
}

type updateInput struct {
	tableInput
	Body struct {
		Patch  gateway.Row    `json:"patch" doc:"Columns to set"`
		Filter gateway.Filter `json:"filter" doc:"Rows to update, at least one condition"`
	}
}

type upsertInput struct {
	tableInput
	Body struct {
		Rows        []gateway.Row `json:"rows" minItems:"1"`
		ConflictKey []string      `json:"conflict_key" minItems:"1" doc:"Columns of the unique key"`
	}
}

type deleteInput struct {
	tableInput
	Filter string `query:"filter" required:"true" doc:"JSON-encoded filter, at least one condition"`
}

type eventsInput struct {
	tableInput
	Filter string `query:"filter" doc:"JSON-encoded filter applied to inserted rows"`
}

type response struct {
	Status   string `json:"status" example:"Ok"`
	Affected int    `json:"affected,omitempty"`
}

type output struct {
	Body response
}
