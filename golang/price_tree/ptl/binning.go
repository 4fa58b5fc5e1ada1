package ptl

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/survival"
)

//AttributeBins describes the buckets of one attribute. A discrete attribute keeps its sorted
//distinct training values, a continuous one keeps NumCategories-1 equal-width boundaries.
type AttributeBins struct {
	Discrete   bool
	Values     []float64 `json:",omitempty"`
	Boundaries []float64 `json:",omitempty"`
}

//NumBuckets returns the number of buckets the local search assigns to a side.
func (ab AttributeBins) NumBuckets() int {
	if ab.Discrete {
		return len(ab.Values)
	}
	return len(ab.Boundaries) + 1
}

//Bucket locates the bucket of a value. For a discrete attribute ok is false when the value
//was never seen during training.
func (ab AttributeBins) Bucket(value float64) (bucket int, ok bool) {
	if !ab.Discrete {
		return sort.SearchFloat64s(ab.Boundaries, value), true
	}
	bucket = sort.SearchFloat64s(ab.Values, value)
	return bucket, bucket < len(ab.Values) && ab.Values[bucket] == value
}

func discreteBins(values []float64) AttributeBins {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	uniq := sorted[:0]
	for ind, v := range sorted {
		if ind == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	return AttributeBins{Discrete: true, Values: uniq}
}

func continuousBins(values []float64, numCategories int) AttributeBins {
	low, high := values[0], values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	width := (high - low) / float64(numCategories)
	boundaries := make([]float64, numCategories-1)
	for ind := range boundaries {
		boundaries[ind] = low + float64(ind+1)*width
	}
	return AttributeBins{Boundaries: boundaries}
}

//Binning is computed once from the whole training set and is read-only afterwards.
type Binning struct {
	Attributes []AttributeBins
	Price      survival.PriceBins
}

//Dataset couples the training records with their frozen binning and the per-record bucket
//indices. Subsets along the recursion are slices of record ids.
type Dataset struct {
	Records      []Record
	Binning      Binning
	Observations []survival.Observation
	Buckets      [][]int
}

//NewDataset validates the records and freezes the attribute and price bins.
func NewDataset(records []Record, numCategories, numPriceBins int, isDiscrete []bool) (*Dataset, error) {
	if len(records) == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "no records to build a dataset")
	}
	w := len(records[0].Attributes)
	if len(isDiscrete) != w {
		return nil, eris.Wrapf(ErrInvalidConfig, "is_discrete has %d flags for %d attributes", len(isDiscrete), w)
	}
	if numCategories < 1 {
		return nil, eris.Wrapf(ErrInvalidConfig, "number of categories must be positive, got %d", numCategories)
	}
	for ind, record := range records {
		if len(record.Attributes) != w {
			return nil, eris.Wrapf(ErrInvalidArgument, "record %d has %d attributes, want %d", ind, len(record.Attributes), w)
		}
	}

	ds := &Dataset{Records: records, Observations: make([]survival.Observation, len(records))}
	for ind, record := range records {
		ds.Observations[ind] = record.Observation()
	}

	priceBins, err := survival.PriceBinsFromObservations(ds.Observations, numPriceBins)
	if err != nil {
		return nil, eris.Wrap(err, "price bins")
	}
	ds.Binning.Price = priceBins

	column := make([]float64, len(records))
	for q := 0; q < w; q++ {
		for p, record := range records {
			column[p] = record.Attributes[q]
		}
		if isDiscrete[q] {
			ds.Binning.Attributes = append(ds.Binning.Attributes, discreteBins(column))
		} else {
			ds.Binning.Attributes = append(ds.Binning.Attributes, continuousBins(column, numCategories))
		}
	}

	ds.Buckets = make([][]int, len(records))
	for p, record := range records {
		ds.Buckets[p] = make([]int, w)
		for q, value := range record.Attributes {
			ds.Buckets[p][q], _ = ds.Binning.Attributes[q].Bucket(value)
		}
	}
	return ds, nil
}

//Width returns the number of attributes.
func (ds *Dataset) Width() int {
	return len(ds.Binning.Attributes)
}

//Height returns the number of records.
func (ds *Dataset) Height() int {
	return len(ds.Records)
}

//Record returns the record with the given id.
func (ds *Dataset) Record(id int) (Record, error) {
	if id < 0 || id >= len(ds.Records) {
		return Record{}, eris.Wrapf(ErrInvalidArgument, "record index %d out of range [0, %d)", id, len(ds.Records))
	}
	return ds.Records[id], nil
}

//AttributeBins returns the frozen bins of one attribute.
func (ds *Dataset) AttributeBins(q int) (AttributeBins, error) {
	if q < 0 || q >= ds.Width() {
		return AttributeBins{}, eris.Wrapf(ErrInvalidArgument, "attribute index %d out of range [0, %d)", q, ds.Width())
	}
	return ds.Binning.Attributes[q], nil
}

//RecordIds enumerates all records of the dataset.
func (ds *Dataset) RecordIds() []int {
	ids := make([]int, len(ds.Records))
	for p := range ids {
		ids[p] = p
	}
	return ids
}

func (ds *Dataset) observations(ids []int) []survival.Observation {
	out := make([]survival.Observation, len(ids))
	for ind, id := range ids {
		out[ind] = ds.Observations[id]
	}
	return out
}
