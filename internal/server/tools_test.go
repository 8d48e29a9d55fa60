package server

import (
	"context"
	"testing"
)

var expectedTools = []string{
	"cbf_load",
	"cbf_headers",
	"cbf_dimensions",
	"cbf_render",
	"cbf_crop",
	"cbf_crop_quadrant",
	"cbf_sample_pixel",
	"cbf_sample_pixels_multi",
	"cbf_statistics",
	"cbf_radial_profile",
	"cbf_detect_rings",
	"cbf_ring_overlay",
	"cbf_measure_distance",
	"cbf_compare_regions",
}

func toolMap() map[string]Tool {
	m := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		m[tool.Name] = tool
	}
	return m
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()
	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	m := toolMap()
	for _, name := range expectedTools {
		if _, ok := m[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared.
			for _, r := range tool.InputSchema["required"].([]string) {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %s not in properties", r)
				}
			}
			if _, ok := props["index"]; !ok {
				t.Error("missing index parameter")
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			required := tool.InputSchema["required"].([]string)
			if len(required) == 0 || required[0] != "path" {
				t.Errorf("required: got %v, want path first", required)
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := map[string][]string{
		"cbf_crop":                {"path", "x1", "y1", "x2", "y2"},
		"cbf_crop_quadrant":       {"path", "region"},
		"cbf_sample_pixel":        {"path", "x", "y"},
		"cbf_sample_pixels_multi": {"path", "points"},
		"cbf_measure_distance":    {"path", "x1", "y1", "x2", "y2"},
		"cbf_compare_regions":     {"path", "region1", "region2"},
		"cbf_radial_profile":      {"path"},
	}

	m := toolMap()
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			got := m[name].InputSchema["required"].([]string)
			if len(got) != len(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("got %v, want %v", got, want)
				}
			}
		})
	}
}

func TestToolDefinitions_CropQuadrantRegions(t *testing.T) {
	props := toolMap()["cbf_crop_quadrant"].InputSchema["properties"].(map[string]interface{})
	regionProp, ok := props["region"].(map[string]interface{})
	if !ok {
		t.Fatal("region property should exist and be a map")
	}
	enum, ok := regionProp["enum"].([]string)
	if !ok {
		t.Fatal("region should have enum")
	}

	expectedRegions := []string{
		"top-left", "top-right", "bottom-left", "bottom-right",
		"top-half", "bottom-half", "left-half", "right-half", "center",
	}
	enumMap := make(map[string]bool)
	for _, e := range enum {
		enumMap[e] = true
	}
	for _, region := range expectedRegions {
		if !enumMap[region] {
			t.Errorf("Expected region '%s' not in enum", region)
		}
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"cbf_render":          {"colormap": "inverted", "gamma": 1.0, "scale": 1.0, "flip_vertical": false},
		"cbf_crop":            {"scale": 1.0, "smooth": 0.0},
		"cbf_radial_profile":  {"angular_bins": 720, "radial_bins": 500, "plot": false},
		"cbf_detect_rings":    {"min_prominence": 0.1, "min_separation": 3},
		"cbf_ring_overlay":    {"color": "#FF000080", "detect": false},
		"cbf_load":            {"index": 0},
		"cbf_compare_regions": {"tolerance": 0.0},
	}

	m := toolMap()
	for toolName, expectedDefaults := range toolDefaults {
		tool, ok := m[toolName]
		if !ok {
			t.Errorf("Tool %s not found", toolName)
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}
			actualDefault, ok := param["default"]
			if !ok {
				t.Errorf("%s.%s: missing default value", toolName, paramName)
				continue
			}
			if actualDefault != expectedDefault {
				t.Errorf("%s.%s: default got %v (%T), want %v (%T)",
					toolName, paramName, actualDefault, actualDefault, expectedDefault, expectedDefault)
			}
		}
	}
}

func TestToolDefinitions_AllDispatched(t *testing.T) {
	s := New(nil)
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			// Without a path every known tool fails before touching the cache.
			_, err := s.executeTool(context.Background(), tool.Name, []byte(`{}`))
			if err == nil {
				t.Fatal("got nil error, want missing path")
			}
			if err.Error() == "unknown tool: "+tool.Name {
				t.Errorf("tool %s is not dispatched", tool.Name)
			}
		})
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(nil)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expectedTools))
	}
}
