package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// SignedTxRecord is the export row of one signed transaction.
type SignedTxRecord struct {
	TxID        string `json:"txid" parquet:"name=txid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Address     string `json:"address" parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	Destination string `json:"destination" parquet:"name=destination, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount      int64  `json:"amount" parquet:"name=amount, type=INT64"` // Value in satoshi
	Fee         int64  `json:"fee" parquet:"name=fee, type=INT64"`
	Change      int64  `json:"change" parquet:"name=change, type=INT64"`
	FeeMode     string `json:"feeMode" parquet:"name=fee_mode, type=BYTE_ARRAY, convertedtype=UTF8"`
	Inputs      int32  `json:"inputs" parquet:"name=inputs, type=INT32"`
	Outputs     int32  `json:"outputs" parquet:"name=outputs, type=INT32"`
	RawHex      string `json:"hex" parquet:"name=hex, type=BYTE_ARRAY, convertedtype=UTF8"`
	Broadcast   bool   `json:"broadcast" parquet:"name=broadcast, type=BOOLEAN"`
	CreatedAt   int64  `json:"createdAt" parquet:"name=created_at, type=INT64"` // Unix millis
}

// StartSignedTxWriter appends records from input to filePath as JSON lines.
// Records are written every flushSize records or flushInterval, whichever
// comes first. The returned channel yields the first write error, or nil,
// once input is closed and drained.
func StartSignedTxWriter(filePath string, input <-chan SignedTxRecord, flushSize int,
	flushInterval time.Duration) (<-chan error, error) {

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	encoder := json.NewEncoder(file)
	return runBuffered(input, flushSize, flushInterval,
		func(rec SignedTxRecord) error { return encoder.Encode(rec) },
		file.Close), nil
}

// StartSignedTxWriterParquet is StartSignedTxWriter for a snappy compressed
// parquet file. The file is only readable after input is closed.
func StartSignedTxWriterParquet(filePath string, input <-chan SignedTxRecord, flushSize int,
	flushInterval time.Duration) (<-chan error, error) {

	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(SignedTxRecord), 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 16 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	closeFn := func() error {
		if err := pw.WriteStop(); err != nil {
			fw.Close()
			return fmt.Errorf("parquet write stop: %w", err)
		}
		return fw.Close()
	}
	return runBuffered(input, flushSize, flushInterval,
		func(rec SignedTxRecord) error { return pw.Write(rec) },
		closeFn), nil
}

// runBuffered drains input into write in batches and calls closeFn at the
// end. After the first error records are still drained but dropped.
func runBuffered(input <-chan SignedTxRecord, flushSize int, flushInterval time.Duration,
	write func(SignedTxRecord) error, closeFn func() error) <-chan error {

	if flushSize < 1 {
		flushSize = 1
	}
	done := make(chan error, 1)
	buffer := make([]SignedTxRecord, 0, flushSize)
	ticker := time.NewTicker(flushInterval)

	var firstErr error
	flush := func() {
		for _, item := range buffer {
			if firstErr != nil {
				break
			}
			if err := write(item); err != nil {
				firstErr = err
				log.Errorf("[export] Failed to write %s: %v", item.TxID, err)
			}
		}
		buffer = buffer[:0]
	}

	go func() {
		defer ticker.Stop()
		for {
			select {
			case rec, ok := <-input:
				if !ok {
					// Channel closed, flush final data
					flush()
					if err := closeFn(); err != nil && firstErr == nil {
						firstErr = err
					}
					done <- firstErr
					close(done)
					return
				}
				buffer = append(buffer, rec)
				if len(buffer) >= flushSize {
					flush()
				}

			case <-ticker.C:
				if len(buffer) > 0 {
					flush()
				}
			}
		}
	}()
	return done
}
