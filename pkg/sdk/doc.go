// Package hoteldex embeds the hoteldex sync pipeline and lookups in a Go
// program, without running the HTTP service.
//
// The client talks to Redis with the search and JSON modules directly and
// runs dump syncs in the calling goroutine:
//
//	client, _ := hoteldex.New(ctx,
//	    hoteldex.WithRedis("localhost:6379", ""),
//	    hoteldex.WithRatehawk(keyID, apiKey),
//	)
//	defer client.Close()
//
//	job, _ := client.Sync().Run(ctx, hoteldex.SyncRequest{
//	    Kind: "hotel", Country: "IT", Index: "hotels",
//	})
//	page, _ := client.Lookup().HotelsByName(ctx, "roma", "it")
//	for _, h := range page.Results {
//	    fmt.Println(h.Name, h.Rating, page.Source)
//	}
package hoteldex
