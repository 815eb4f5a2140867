package db

import (
	"io"
	"log"
)

// CloseClient closes a DB client during resource cleanup and logs the outcome
func CloseClient(name string, c io.Closer) {
	if c == nil {
		log.Printf("[INFO] `%s` Nothing to Close", name)
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN] Failed to Close `%s`: %v", name, err)
	} else {
		log.Printf("[INFO] `%s` Closed", name)
	}
}
