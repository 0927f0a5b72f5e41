// Package sse streams server-sent events to HTTP clients.
//
// A Hub routes events to registered clients by glob pattern on the client
// ID. ServeSSE runs one client connection: it can replay history first,
// then forwards live events until the client leaves or a final event is
// written.
//
// # Usage
//
//	hub := sse.NewHub()
//	go hub.Run()
//	router.GET("/events/:id", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, "job:"+c.Param("id")+":"+uuid.NewString())
//	})
//	hub.Broadcast("job:42:*", sse.Event{ID: 1, Type: "state", Data: data})
package sse
