package core

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"route_service/internal/domain/model"
)

// ExclusionModelBuilder turns flagged points into exclusion areas.
type ExclusionModelBuilder struct {
	SizeMeters float64
}

func NewExclusionModelBuilder(sizeMeters float64) *ExclusionModelBuilder {
	if sizeMeters <= 0 {
		sizeMeters = DefaultExclusionMeters
	}
	return &ExclusionModelBuilder{SizeMeters: sizeMeters}
}

// Priority zeroes the priority inside an area around every point.
func (b *ExclusionModelBuilder) Priority(points []model.Coordinate) *model.CustomModel {
	m := b.areas(points)
	for i := range points {
		m.Priority = append(m.Priority, model.If(inArea(i), model.MultiplyBy, "0"))
	}
	return m
}

// Speed caps the speed to zero inside an area around every point. This is
// the variant used when a user skips an obstacle.
func (b *ExclusionModelBuilder) Speed(points []model.Coordinate) *model.CustomModel {
	m := b.areas(points)
	for i := range points {
		m.Speed = append(m.Speed, model.If(inArea(i), model.LimitTo, "0"))
	}
	return m
}

func (b *ExclusionModelBuilder) areas(points []model.Coordinate) *model.CustomModel {
	m := model.NewCustomModel()
	for i, p := range points {
		f := geojson.NewFeature(orb.Polygon{exclusionRing(p, b.SizeMeters)})
		f.ID = areaID(i)
		m.Areas.Append(f)
	}
	return m
}

func areaID(i int) string {
	return fmt.Sprintf("area%d", i)
}

func inArea(i int) string {
	return "in_" + areaID(i)
}

// BuildExclusionModel uses the default exclusion size.
func BuildExclusionModel(points []model.Coordinate) *model.CustomModel {
	return NewExclusionModelBuilder(DefaultExclusionMeters).Priority(points)
}
