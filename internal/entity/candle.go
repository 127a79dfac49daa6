package entity

import (
	"fmt"
	"math/big"
)

// Resolution1m is the only resolution materialized today. Coarser
// resolutions can be derived from it offline.
const Resolution1m = "1m"

// LatestCandleID is the singleton key for the most recent trade price.
const LatestCandleID = "1"

// Candle is a 1-minute OHLCV bucket. ID is "{resolution}-{bucketStart}"
// where bucketStart is the bucket's Unix-second floor.
type Candle struct {
	ID          string
	Resolution  string
	BucketStart int64
	OpenPrice   *big.Int
	HighPrice   *big.Int
	LowPrice    *big.Int
	ClosePrice  *big.Int
	Volume      *big.Int // sum of trade base amounts in the bucket
}

// LatestCandle is the singleton carrying the last trade price. New
// buckets open at this price so the chart never gaps between minutes.
type LatestCandle struct {
	ID         string
	ClosePrice *big.Int
	Timestamp  int64
}

// CandleBucket floors a block timestamp to its 1-minute bucket start.
func CandleBucket(ts int64) int64 {
	return ts - ts%60
}

// CandleID builds the composite key for one bucket.
func CandleID(resolution string, bucketStart int64) string {
	return fmt.Sprintf("%s-%d", resolution, bucketStart)
}
