package voxel

import (
	"cmp"
	"slices"
)

func compareVoxels(a, b Voxel) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

func sortVoxels(v []Voxel) {
	slices.SortFunc(v, compareVoxels)
}
