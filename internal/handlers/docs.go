package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

// filterParams are accepted by every dashboard endpoint
func filterParams() []map[string]interface{} {
	return []map[string]interface{}{
		queryParam("station", "Station name; repeat or comma separate for several", map[string]interface{}{"type": "string"}),
		queryParam("start_date", "First calendar date, inclusive (YYYY-MM-DD)", map[string]interface{}{"type": "string", "format": "date"}),
		queryParam("end_date", "Last calendar date, inclusive (YYYY-MM-DD)", map[string]interface{}{"type": "string", "format": "date"}),
		queryParam("year_from", "First year, inclusive", map[string]interface{}{"type": "integer"}),
		queryParam("year_to", "Last year, inclusive", map[string]interface{}{"type": "integer"}),
	}
}

func measureParam() map[string]interface{} {
	return queryParam("measure", "Measurement column", map[string]interface{}{"type": "string", "default": DefaultMeasure})
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func getOperation(summary, description string, params []map[string]interface{}, schema map[string]interface{}) map[string]interface{} {
	if params == nil {
		params = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     summary,
			"description": description,
			"parameters":  params,
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "Successful response",
					"content": map[string]interface{}{
						"application/json": map[string]interface{}{"schema": schema},
					},
				},
				"400": map[string]interface{}{"description": "Invalid parameter or unknown measure", "content": errorContent()},
				"503": map[string]interface{}{"description": "Dataset file not found", "content": errorContent()},
			},
		},
	}
}

func errorContent() map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": ref("Error")},
	}
}

func seriesSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"group_by": map[string]string{"type": "string"},
			"measure":  map[string]string{"type": "string"},
			"points": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"key":   map[string]string{"type": "string"},
						"value": map[string]string{"type": "number"},
						"count": map[string]string{"type": "integer"},
					},
				},
			},
		},
	}
}

// openAPIDocument describes the dashboard API in OpenAPI 3.0 form
func openAPIDocument() map[string]interface{} {
	withMeasure := append(filterParams(), measureParam())

	aggregateParams := append([]map[string]interface{}{{
		"name":     "group",
		"in":       "path",
		"required": true,
		"schema": map[string]interface{}{
			"type": "string",
			"enum": []string{"year", "month", "hour", "station", "month_end"},
		},
	}}, withMeasure...)

	rankingParams := append(filterParams(), measureParam(),
		queryParam("order", "Ranking direction", map[string]interface{}{"type": "string", "enum": []string{"asc", "desc"}, "default": "desc"}))

	correlationParams := append(filterParams(),
		queryParam("x", "Covariate column", map[string]interface{}{"type": "string", "default": DefaultCovariate}),
		queryParam("y", "Target column", map[string]interface{}{"type": "string", "default": DefaultMeasure}))

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Air Quality Platform API",
			"description": "Filtering, aggregation, categorization and correlation over hourly station air quality observations",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Air Quality Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/stations": getOperation("List stations", "Distinct station names in the dataset", nil,
				map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"stations": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
						"count":    map[string]string{"type": "integer"},
					},
				}),
			"/api/summary": getOperation("Headline summary", "Counts, overall mean, highest and lowest station and time span of the filtered rows", withMeasure,
				map[string]interface{}{"type": "object"}),
			"/api/aggregates/{group}": getOperation("Aggregate series", "Mean of the measure per year, month, hour, station or month end", aggregateParams,
				seriesSchema()),
			"/api/rankings": getOperation("Station ranking", "Stations ordered by their mean of the measure", rankingParams,
				seriesSchema()),
			"/api/categories": getOperation("Category distribution", "Number of rows per AQI health category", withMeasure,
				map[string]interface{}{"type": "object"}),
			"/api/correlation": getOperation("Correlation", "Pearson coefficient over all complete rows, a deterministic sample and a least-squares fit of the sample", correlationParams,
				map[string]interface{}{"type": "object"}),
			"/health": getOperation("Health check", "Liveness and dataset cache state", nil,
				map[string]interface{}{"type": "object"}),
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Air Quality Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(openAPIDocument())
}
