// Package files serves the archive of exports saved by the file sink.
//
// Discovery scans the exports directory and classifies each file by the
// export format that produced it. Manager adds name validation, listing
// with a format filter and limit, and open and delete operations that
// report missing files as not-found application errors.
//
//	manager := files.NewManager(paths, logger)
//	saved, err := manager.List(ctx, exporter.FormatCSV, 20)
//
//	f, info, err := manager.Open(ctx, "leads_2024-03-05.csv")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
package files
