package core

import "route_service/internal/domain/model"

const unknownSurfaceColor = "#FF0000"

var surfaceColors = map[string]string{
	"asphalt":            "#000000",
	"unpaved":            "#D2B48C",
	"paved":              "#C0C0C0",
	"concrete":           "#808080",
	"paving_stones":      "#A52A2A",
	"ground":             "#DEB887",
	"gravel":             "#8B4513",
	"dirt":               "#A0522D",
	"grass":              "#008000",
	"compacted":          "#D2691E",
	"sand":               "#FFD700",
	"sett":               "#708090",
	"fine_gravel":        "#CD853F",
	"wood":               "#A0522D",
	"concrete:plates":    "#B0C4DE",
	"earth":              "#8B4513",
	"cobblestone":        "#2F4F4F",
	"pebblestone":        "#BC8F8F",
	"grass_paver":        "#32CD32",
	"metal":              "#B0C4DE",
	"artificial_turf":    "#7CFC00",
	"tartan":             "#FF4500",
	"unhewn_cobblestone": "#696969",
}

// SurfaceColor returns the display color of a surface value.
func SurfaceColor(surface string) string {
	if c, ok := surfaceColors[surface]; ok {
		return c
	}
	return unknownSurfaceColor
}

// ExpandDetail turns a detail array into one value per path edge. Edges not
// covered by any interval get nil.
func ExpandDetail(detail model.DetailArray, edges int) []any {
	if edges <= 0 {
		return []any{}
	}
	out := make([]any, edges)
	for _, iv := range detail {
		from, to, ok := clampInterval(iv.From, iv.To, edges)
		if !ok {
			continue
		}
		for i := from; i < to; i++ {
			out[i] = iv.Value
		}
	}
	return out
}

// SurfaceColors colors every edge of a path by its surface. A path without
// surface detail is treated as missing surface on its first two edges.
func SurfaceColors(path model.Path) []string {
	edges := len(path.Points.Coordinates) - 1
	if edges <= 0 {
		return []string{}
	}
	detail := path.Detail("surface")
	if detail == nil {
		detail = model.DetailArray{{From: 0, To: 2, Value: "missing"}}
	}
	values := ExpandDetail(detail, edges)
	colors := make([]string, edges)
	for i, v := range values {
		colors[i] = SurfaceColor(model.ValueString(v))
	}
	return colors
}
