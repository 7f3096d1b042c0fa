package region

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapefilePaths(t *testing.T) {
	seg, pts := ShapefilePaths("out/downtown.geojson")
	assert.Equal(t, "out/downtown.shp", seg)
	assert.Equal(t, "out/downtown-points.shp", pts)

	seg, pts = ShapefilePaths("streets")
	assert.Equal(t, "streets.shp", seg)
	assert.Equal(t, "streets-points.shp", pts)
}

func attr(r *shp.Reader, i int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(i), "\x00"))
}

func TestRegion_WriteShapefiles(t *testing.T) {
	r, err := NewGenerator(oneCorner(), nil, smallRing()).Walk(context.Background(), "R", center)
	require.NoError(t, err)
	require.Len(t, r.Segments, 1)
	require.NotEmpty(t, r.Points)

	path := filepath.Join(t.TempDir(), "region.shp")
	require.NoError(t, r.WriteShapefiles(path))
	segPath, ptPath := ShapefilePaths(path)
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "region.dbf"))

	segs, err := shp.Open(segPath)
	require.NoError(t, err)
	defer segs.Close() //nolint:errcheck

	var names []string
	for _, f := range segs.Fields() {
		names = append(names, strings.TrimRight(f.String(), "\x00"))
	}
	assert.Equal(t, []string{"STREET_ID", "BEARING", "LENGTH_M"}, names)

	var lines int
	for segs.Next() {
		_, shape := segs.Shape()
		pl, ok := shape.(*shp.PolyLine)
		require.True(t, ok)
		require.Len(t, pl.Points, 2)
		want := r.Segments[lines]
		assert.InDelta(t, want.A.Lng, pl.Points[0].X, 1e-9)
		assert.InDelta(t, want.A.Lat, pl.Points[0].Y, 1e-9)
		assert.InDelta(t, want.B.Lng, pl.Points[1].X, 1e-9)
		assert.InDelta(t, want.B.Lat, pl.Points[1].Y, 1e-9)

		assert.Equal(t, strconv.Itoa(want.ID), attr(segs, 0))
		bearing, err := strconv.ParseFloat(attr(segs, 1), 64)
		require.NoError(t, err)
		assert.InDelta(t, want.Bearing, bearing, 1e-4)
		lines++
	}
	assert.Equal(t, len(r.Segments), lines)

	pts, err := shp.Open(ptPath)
	require.NoError(t, err)
	defer pts.Close() //nolint:errcheck

	var points int
	for pts.Next() {
		_, shape := pts.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		want := r.Points[points]
		assert.InDelta(t, want.Lng, p.X, 1e-9)
		assert.InDelta(t, want.Lat, p.Y, 1e-9)
		assert.Equal(t, strconv.Itoa(want.SegmentID), attr(pts, 0))
		points++
	}
	assert.Equal(t, len(r.Points), points)
}

func TestRegion_WriteShapefiles_BadDir(t *testing.T) {
	r := &Region{Name: "R", Center: center}
	err := r.WriteShapefiles(filepath.Join(t.TempDir(), "missing", "region.shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region: create shapefile")
}
