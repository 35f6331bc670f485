package voxel

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultFragments is the number of clusters a volume is split into.
	DefaultFragments = 500

	// DefaultSeed seeds center placement so fragments are reproducible.
	DefaultSeed int64 = 0

	// KMeansRefinements is the number of passes after the initial one.
	KMeansRefinements = 100
)

// DistributePoints places n points uniformly at random in [origin, origin+size).
func DistributePoints(n int, origin, size mgl32.Vec3, seed int64) []mgl32.Vec3 {
	r := rand.New(rand.NewSource(seed))
	points := make([]mgl32.Vec3, n)
	for i := range points {
		points[i] = mgl32.Vec3{
			r.Float32()*size[0] + origin[0],
			r.Float32()*size[1] + origin[1],
			r.Float32()*size[2] + origin[2],
		}
	}
	return points
}

// Fragment splits voxels into n spatial clusters. Centers are seeded inside
// [origin, origin+size) and refined with KMeans. Clusters may be empty.
func Fragment(voxels []Voxel, origin, size mgl32.Vec3, n int, seed int64) [][]Voxel {
	if n <= 0 {
		return nil
	}
	clusters, _ := KMeans(voxels, DistributePoints(n, origin, size, seed))
	return clusters
}

// KMeans runs Lloyd's algorithm for 1 + KMeansRefinements passes and returns
// the clusters of the last assignment with the centers it produced. A center
// left without voxels keeps its position.
func KMeans(voxels []Voxel, centers []mgl32.Vec3) ([][]Voxel, []mgl32.Vec3) {
	centers = append([]mgl32.Vec3(nil), centers...)

	clusters := Voronoi(voxels, centers)
	centers = updateCenters(clusters, centers)
	for i := 0; i < KMeansRefinements; i++ {
		clusters = Voronoi(voxels, centers)
		centers = updateCenters(clusters, centers)
	}
	return clusters, centers
}

// Voronoi assigns every voxel to its nearest center. Ties go to the lowest
// center index.
func Voronoi(voxels []Voxel, centers []mgl32.Vec3) [][]Voxel {
	cells := make([][]Voxel, len(centers))
	if len(centers) == 0 {
		return cells
	}
	for _, v := range voxels {
		p := mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		best := float32(math.MaxFloat32)
		index := 0
		for j, c := range centers {
			if d := c.Sub(p).Len(); d < best {
				best = d
				index = j
			}
		}
		cells[index] = append(cells[index], v)
	}
	return cells
}

func updateCenters(clusters [][]Voxel, centers []mgl32.Vec3) []mgl32.Vec3 {
	next := make([]mgl32.Vec3, len(centers))
	for i, cluster := range clusters {
		if len(cluster) == 0 {
			next[i] = centers[i]
			continue
		}
		var sum mgl32.Vec3
		for _, v := range cluster {
			sum = sum.Add(mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)})
		}
		n := float32(len(cluster))
		next[i] = mgl32.Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
	}
	return next
}

// MeshFragments meshes each non-empty fragment on a worker pool. The result
// is indexed like fragments; empty fragments get a nil mesh.
func MeshFragments(fragments [][]Voxel, transform mgl32.Mat4, ms Mesher, workers int) []*Mesh {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	meshes := make([]*Mesh, len(fragments))

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for i, fragment := range fragments {
		if len(fragment) == 0 {
			continue
		}
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			meshes[i] = ms.Mesh(NewMap(fragment, nil), transform)
		})
	}
	wg.Wait()
	return meshes
}
