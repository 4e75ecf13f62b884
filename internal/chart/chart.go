// Package chart renders query results into raster charts. It executes the
// SQL via the workspace executor, loads the rows into columnar series, and
// instantiates exactly one plotting primitive per call: gonum/plot for bar,
// line, scatter, histogram and box charts, go-chart for pie charts. No
// statistics, binning or aggregation is computed locally beyond what the
// primitives do internally.
package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// Supported chart type tags.
const (
	TypeBar       = "bar"
	TypeLine      = "line"
	TypeScatter   = "scatter"
	TypePie       = "pie"
	TypeHistogram = "histogram"
	TypeBox       = "box"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 7 * vg.Inch

	pieWidthPx  = 800
	pieHeightPx = 600
)

// SQLExecutor runs the chart's data query.
type SQLExecutor interface {
	ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error)
}

// Request describes a single chart rendering call.
type Request struct {
	Query       string
	ChartType   string
	XColumn     string
	YColumn     string
	Title       string
	WarehouseID string
}

// Renderer implements the create_chart operation.
type Renderer struct {
	executor SQLExecutor
	log      *zap.Logger
}

// New constructs a Renderer.
func New(executor SQLExecutor, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{executor: executor, log: log}
}

// Create executes the request's query and renders its rows as a chart.
// The query always runs first; an unsupported chart type is rejected only
// after execution. When x/y columns are unspecified, the first two columns
// are selected by position (first = x, second = y).
func (r *Renderer) Create(ctx context.Context, req Request) (*types.ChartResult, error) {
	result, err := r.executor.ExecuteSQL(ctx, req.Query, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if len(result.Columns) == 0 || len(result.Rows) == 0 {
		return nil, types.NewToolError(types.ErrorKindQueryExecution, "query returned no data to chart")
	}

	xCol, yCol, err := resolveColumns(result, req.XColumn, req.YColumn)
	if err != nil {
		return nil, err
	}

	img, err := r.render(req.ChartType, result, xCol, yCol, req.Title)
	if err != nil {
		return nil, err
	}

	r.log.Debug("rendered chart",
		zap.String("chart_type", req.ChartType),
		zap.Int("rows", result.RowCount),
		zap.Int("bytes", len(img)),
	)

	return &types.ChartResult{
		ChartType: req.ChartType,
		ImageData: base64.StdEncoding.EncodeToString(img),
		MimeType:  "image/png",
		XColumn:   xCol,
		YColumn:   yCol,
		Title:     req.Title,
		Image:     img,
	}, nil
}

func (r *Renderer) render(chartType string, result *types.QueryResult, xCol, yCol, title string) ([]byte, error) {
	xs := columnValues(result, xCol)
	ys := columnValues(result, yCol)

	switch chartType {
	case TypeBar:
		return renderBar(xs, ys, xCol, yCol, title)
	case TypeLine:
		return renderXY(xs, ys, xCol, yCol, title, false)
	case TypeScatter:
		return renderXY(xs, ys, xCol, yCol, title, true)
	case TypePie:
		return renderPie(xs, ys, title)
	case TypeHistogram:
		return renderHistogram(xs, xCol, title)
	case TypeBox:
		return renderBox(ys, yCol, title)
	default:
		return nil, types.NewToolError(types.ErrorKindUnsupportedChartType, "unsupported chart type: %s", chartType)
	}
}

// resolveColumns applies the default column policy: explicit names must
// exist in the result, unspecified names fall back to the first two
// columns by position.
func resolveColumns(result *types.QueryResult, xCol, yCol string) (string, string, error) {
	if xCol == "" {
		xCol = result.Columns[0]
	} else if !hasColumn(result, xCol) {
		return "", "", types.NewToolError(types.ErrorKindInvalidArguments, "invalid argument %q: column %q not in query result", "x_column", xCol)
	}

	if yCol == "" {
		if len(result.Columns) > 1 {
			yCol = result.Columns[1]
		} else {
			yCol = result.Columns[0]
		}
	} else if !hasColumn(result, yCol) {
		return "", "", types.NewToolError(types.ErrorKindInvalidArguments, "invalid argument %q: column %q not in query result", "y_column", yCol)
	}

	return xCol, yCol, nil
}

func hasColumn(result *types.QueryResult, name string) bool {
	for _, col := range result.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// columnValues extracts one column from the row-oriented result as strings,
// preserving row order.
func columnValues(result *types.QueryResult, name string) []string {
	values := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		values = append(values, fmt.Sprint(row[name]))
	}
	return values
}

// parseFloats converts a column to numeric values, failing on the first
// value that is not a number.
func parseFloats(column string, values []string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, types.NewToolError(
				types.ErrorKindInvalidArguments,
				"invalid argument %q: column contains non-numeric value %q", column, v,
			)
		}
		out = append(out, f)
	}
	return out, nil
}

func renderBar(xs, ys []string, xCol, yCol, title string) ([]byte, error) {
	values, err := parseFloats(yCol, ys)
	if err != nil {
		return nil, err
	}

	p := newPlot(title, xCol, yCol)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to build bar chart: %v", err)
	}
	p.Add(bars)
	p.NominalX(xs...)

	return encodePNG(p)
}

func renderXY(xs, ys []string, xCol, yCol, title string, scatter bool) ([]byte, error) {
	yValues, err := parseFloats(yCol, ys)
	if err != nil {
		return nil, err
	}

	pts := make(plotter.XYs, len(yValues))
	for i := range pts {
		// A non-numeric x axis falls back to the row index.
		x, err := strconv.ParseFloat(xs[i], 64)
		if err != nil {
			x = float64(i)
		}
		pts[i].X = x
		pts[i].Y = yValues[i]
	}

	p := newPlot(title, xCol, yCol)
	if scatter {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, types.NewToolError(types.ErrorKindInternal, "failed to build scatter chart: %v", err)
		}
		p.Add(s)
	} else {
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, types.NewToolError(types.ErrorKindInternal, "failed to build line chart: %v", err)
		}
		p.Add(l)
	}

	return encodePNG(p)
}

func renderHistogram(xs []string, xCol, title string) ([]byte, error) {
	values, err := parseFloats(xCol, xs)
	if err != nil {
		return nil, err
	}

	p := newPlot(title, xCol, "count")
	h, err := plotter.NewHist(plotter.Values(values), 16)
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to build histogram: %v", err)
	}
	p.Add(h)

	return encodePNG(p)
}

func renderBox(ys []string, yCol, title string) ([]byte, error) {
	values, err := parseFloats(yCol, ys)
	if err != nil {
		return nil, err
	}

	p := newPlot(title, "", yCol)
	b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(values))
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to build box plot: %v", err)
	}
	p.Add(b)
	p.NominalX(yCol)

	return encodePNG(p)
}

func renderPie(labels, ys []string, title string) ([]byte, error) {
	values, err := parseFloats("y_column", ys)
	if err != nil {
		return nil, err
	}

	pieValues := make([]gochart.Value, 0, len(values))
	for i, v := range values {
		pieValues = append(pieValues, gochart.Value{Value: v, Label: labels[i]})
	}

	pie := gochart.PieChart{
		Title:  title,
		Width:  pieWidthPx,
		Height: pieHeightPx,
		Values: pieValues,
	}

	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to render pie chart: %v", err)
	}
	return buf.Bytes(), nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to serialize chart: %v", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to serialize chart: %v", err)
	}
	return buf.Bytes(), nil
}
