// Package manualrag embeds the manual search engine in a Go program without
// running the HTTP service.
//
// It loads the indexed manuals listed in a catalog and answers questions
// across their text, tables and page images:
//
//	client, _ := manualrag.New(ctx,
//	    manualrag.WithCatalog("manuals_metadata.json", "/data"),
//	    manualrag.WithEmbedders(textEmbedder, clipEmbedder),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, "how do I calibrate the scale", manualrag.TopK(5))
//	fmt.Println(res.Evidence.Context)
//
// Without embedders the client falls back to substring search over the
// text modality; Mode reports which strategy is in use.
package manualrag
