package logsearch

import "github.com/google/jsonschema-go/jsonschema"

func minimum(v float64) *float64 { return &v }

// noExtra rejects properties not listed in a schema's Properties
func noExtra() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func keywordListSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "string"},
				{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"query":          {Type: "string", Description: "Text or regular expression to find"},
						"regex":          {Type: "boolean", Description: "Treat query as a regular expression"},
						"case_sensitive": {Type: "boolean", Description: "Override the query-level case sensitivity"},
						"whole_word":     {Type: "boolean", Description: "Match only at word boundaries"},
					},
					Required:             []string{"query"},
					AdditionalProperties: noExtra(),
				},
			},
		},
	}
}

func scanConfigProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"root_path": {
			Type:        "string",
			Description: "Directory to search. Defaults to the server's configured root path",
		},
		"include_globs": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: `Glob patterns relative to root_path, e.g. ["**/*.log", "**/*.gz"]. "**" matches any number of directories and "*" one path segment. Files ending in .gz are decompressed`,
		},
		"exclude_globs": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Glob patterns of files to skip",
		},
	}
}

func searchLogsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"logical_query": {
				Type:        "object",
				Description: "Keyword logic applied to each record: all of must, at least one of any (if given), none of none",
				Properties: map[string]*jsonschema.Schema{
					"must": keywordListSchema("Every keyword must appear"),
					"any":  keywordListSchema("At least one keyword must appear. Empty means no constraint"),
					"none": keywordListSchema("No keyword may appear"),
				},
				AdditionalProperties: noExtra(),
			},
			"scan_config": {
				Type:                 "object",
				Description:          "File selection",
				Properties:           scanConfigProperties(),
				AdditionalProperties: noExtra(),
			},
			"time_filter": {
				Type:        "object",
				Description: "Inclusive time range checked against the timestamp in each record's first line. Records without a timestamp are kept",
				Properties: map[string]*jsonschema.Schema{
					"after":           {Type: "string", Description: "Lower bound, YYYY-MM-DD HH:MM:SS[.mmm]"},
					"before":          {Type: "string", Description: "Upper bound, YYYY-MM-DD HH:MM:SS[.mmm]"},
					"start_time":      {Type: "string", Description: "Alias of after"},
					"end_time":        {Type: "string", Description: "Alias of before"},
					"startTime":       {Type: "string", Description: "Alias of after"},
					"endTime":         {Type: "string", Description: "Alias of before"},
					"timestamp_regex": {Type: "string", Description: "Regular expression locating the timestamp in a line"},
				},
				AdditionalProperties: noExtra(),
			},
			"log_start_pattern": {
				Type:        "string",
				Description: "Regular expression matched at line start that begins a new record. Other lines are appended to the current record. Without it every line is a record",
			},
			"case_sensitive": {
				Type:        "boolean",
				Description: "Case sensitivity of plain keywords. Defaults to the server setting",
			},
			"include_content": {
				Type:        "boolean",
				Description: "Return record text and match positions. Defaults to true",
			},
			"page": {
				Type:        "integer",
				Minimum:     minimum(1),
				Description: "1-based page number. Defaults to 1",
			},
			"page_size": {
				Type:        "integer",
				Minimum:     minimum(1),
				Description: "Hits per page. Values above the server maximum are reduced to it",
			},
			"max_hits": {
				Type:        "integer",
				Minimum:     minimum(1),
				Description: "Stop collecting after this many matches and mark the result truncated",
			},
			"timeout_ms": {
				Type:        "integer",
				Minimum:     minimum(0),
				Description: "Scan deadline in milliseconds. Files not finished in time contribute partial results",
			},
			"hard_timeout_ms": {
				Type:        "integer",
				Minimum:     minimum(0),
				Description: "Alias of timeout_ms",
			},
		},
		Required:             []string{"logical_query"},
		AdditionalProperties: noExtra(),
	}
}

func listLogFilesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           scanConfigProperties(),
		AdditionalProperties: noExtra(),
	}
}
