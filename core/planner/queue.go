package planner

import "container/heap"

type candidate struct {
	id         string
	difficulty float64
	version    int
}

type candidateQueue []candidate

func (q candidateQueue) Len() int { return len(q) }

func (q candidateQueue) Less(i, j int) bool {
	if q[i].difficulty != q[j].difficulty {
		return q[i].difficulty < q[j].difficulty
	}
	return q[i].id < q[j].id
}

func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) { *q = append(*q, x.(candidate)) }

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

var _ heap.Interface = (*candidateQueue)(nil)
