// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/rotisserie/eris"
	"github.com/tarstars/censored_price_tree/golang/price_tree/ptl"
	"gonum.org/v1/gonum/mat"
)

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, eris.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, eris.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	dst := make([]float64, length)
	copy(dst, src)
	return dst, nil
}

func sliceFromPtr(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, eris.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, eris.New("null pointer for non-empty slice")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length), nil
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r, c := int(rows), int(cols)
	if r <= 0 || c <= 0 {
		return nil, eris.Wrapf(ptl.ErrInvalidArgument, "invalid matrix dimensions %dx%d", r, c)
	}
	data, err := copyFloatSlice(ptr, r*c)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

func boolsFromPtr(ptr *C.int, length int) ([]bool, error) {
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, eris.New("null pointer for non-empty flags")
	}
	src := unsafe.Slice(ptr, length)
	flags := make([]bool, length)
	for ind, flag := range src {
		flags[ind] = flag != 0
	}
	return flags, nil
}

//TrainTree grows a tree over a row-major record matrix (won, winning price, observed bid,
//attributes...) and returns its handle, 0 on failure.
//
//export TrainTree
func TrainTree(
	recordsPtr *C.double,
	rows C.int,
	cols C.int,
	isDiscretePtr *C.int,
	maxHeight C.int,
	minLeafSize C.int,
	numCategories C.int,
	numPriceBins C.int,
	censoring C.int,
	convention C.int,
	divergence C.int,
	seed C.longlong,
	threadsNum C.int,
) C.ulonglong {
	setLastError(nil)

	matrix, err := buildDense(recordsPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 0
	}
	records, err := ptl.RecordsFromMatrix(matrix)
	if err != nil {
		setLastError(err)
		return 0
	}

	isDiscrete, err := boolsFromPtr(isDiscretePtr, len(records[0].Attributes))
	if err != nil {
		setLastError(err)
		return 0
	}
	cfg, err := treeConfig(isDiscrete, int(maxHeight), int(minLeafSize), int(numCategories), int(numPriceBins),
		int(censoring), int(convention), int(divergence), int(threadsNum), int64(seed))
	if err != nil {
		setLastError(err)
		return 0
	}

	tree, err := ptl.Train(records, cfg, nil)
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeTree(tree))
}

//export NumPriceBins
func NumPriceBins(handle C.ulonglong) C.int {
	setLastError(nil)
	tree, err := fetchTree(uint64(handle))
	if err != nil {
		setLastError(err)
		return -1
	}
	return C.int(tree.PriceBins.NumBins())
}

//Predict writes rows*NumPriceBins cumulative probabilities into outputPtr.
//
//export Predict
func Predict(handle C.ulonglong, featuresPtr *C.double, rows C.int, cols C.int, outputPtr *C.double) C.int {
	setLastError(nil)
	tree, err := fetchTree(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}

	features, err := buildDense(featuresPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 2
	}

	prediction, err := tree.PredictMatrix(features)
	if err != nil {
		setLastError(err)
		return 3
	}

	outSlice, err := sliceFromPtr(outputPtr, int(rows)*tree.PriceBins.NumBins())
	if err != nil {
		setLastError(err)
		return 4
	}
	copy(outSlice, prediction.RawMatrix().Data)
	return 0
}

//export SaveModel
func SaveModel(handle C.ulonglong, path *C.char) C.int {
	setLastError(nil)
	tree, err := fetchTree(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	if err := tree.Save(C.GoString(path)); err != nil {
		setLastError(err)
		return 2
	}
	return 0
}

//export LoadModel
func LoadModel(path *C.char) C.ulonglong {
	setLastError(nil)
	tree, err := ptl.LoadModel(C.GoString(path))
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.ulonglong(storeTree(tree))
}

//export RenderTree
func RenderTree(handle C.ulonglong, path, figureType *C.char) C.int {
	setLastError(nil)
	tree, err := fetchTree(uint64(handle))
	if err != nil {
		setLastError(err)
		return 1
	}
	goFigureType := C.GoString(figureType)
	if goFigureType == "" {
		goFigureType = "svg"
	}

	goPath := C.GoString(path)
	dst, err := os.Create(goPath)
	if err != nil {
		setLastError(eris.Wrapf(err, "create %s", goPath))
		return 2
	}
	if err := tree.RenderGraph(dst, goFigureType); err != nil {
		_ = dst.Close()
		setLastError(err)
		return 3
	}
	if err := dst.Close(); err != nil {
		setLastError(err)
		return 4
	}
	return 0
}

//export FreeModel
func FreeModel(handle C.ulonglong) {
	freeTree(uint64(handle))
}

//export GetLastError
func GetLastError() *C.char {
	errStr := getLastError()
	if errStr == "" {
		return nil
	}
	return C.CString(errStr)
}

//export FreeCString
func FreeCString(str *C.char) {
	if str != nil {
		C.free(unsafe.Pointer(str))
	}
}

func main() {}
