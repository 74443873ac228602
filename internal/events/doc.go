// Package events carries merge job notifications from workers to live
// observers. The Hub decouples the two sides completely: publishers never
// learn who is listening and never wait on anyone; consumers that stop
// draining are evicted so one stuck websocket cannot stall a running job.
package events
