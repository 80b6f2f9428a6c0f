package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
)

// floatSliceArg extracts a numeric array argument. JSON decoding hands
// arrays over as []any of float64; []float64 is accepted as well for
// callers constructing requests directly.
func floatSliceArg(request mcp.CallToolRequest, key string) ([]float64, error) {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil, errors.Errorf("required argument %q not found", key)
	}
	return toFloatSlice(raw, key)
}

func toFloatSlice(raw any, key string) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return v, nil
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, errors.Errorf("%s[%d] is not a number: %v", key, i, item)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.Errorf("argument %q must be an array of numbers", key)
	}
}

// trajectoryArg extracts an array-of-arrays argument.
func trajectoryArg(request mcp.CallToolRequest, key string) ([][]float64, error) {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil, errors.Errorf("required argument %q not found", key)
	}
	switch v := raw.(type) {
	case [][]float64:
		return v, nil
	case []any:
		out := make([][]float64, len(v))
		for i, item := range v {
			point, err := toFloatSlice(item, key)
			if err != nil {
				return nil, errors.Wrapf(err, "point %d", i+1)
			}
			out[i] = point
		}
		return out, nil
	default:
		return nil, errors.Errorf("argument %q must be an array of points", key)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
