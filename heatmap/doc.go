// Package heatmap rebuilds per-class score rasters from a prediction table.
//
// Tile identifiers carry the native centroid of each tile, so the grid
// position of every row can be recovered without the mosaic:
//
//	req := heatmap.Request{
//	    CSVPath:   persist.CSVPath(sess, "dino"),
//	    Session:   sess.Name,
//	    OutputDir: sess.OutputDir(),
//	    Method:    heatmap.Linear,
//	}
//	paths, err := heatmap.Reconstruct(ctx, req, heatmap.NewPNGWriter())
//
// Cells without a tile are NaN until the fill method runs.
package heatmap
