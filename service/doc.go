/*
	Package service maps pixel set identifiers to backing stores.  It owns the sharded
	file layout under a root directory, the registry of pixel set metadata, an optional
	plane cache shared by read-only stores, and the backoff strategy used when a
	pyramid level hasn't been built.

	Configuration is a TOML file:

		[store]
		root = "/data/omero"
		readonly = false

		[tiles]
		width = 256
		height = 256

		[backoff]
		codec = "zstd"
		warmup = 10
		iterations = 100
		tile_size = 256

		[cache]
		planes_mb = 512

		[registry]
		path = "/data/omero/Registry"

		[logging]
		logfile = "/var/log/pixels.log"
		max_log_size = 500
		max_log_age = 30

	Relative paths are relative to the directory of the configuration file.
*/
package service
