// Copyright © 2024 The ELPS authors

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rng(start, end uint) Range {
	return Range{StartByte: start, EndByte: end, Start: Point{Column: start}, End: Point{Column: end}}
}

func TestNode_Fields(t *testing.T) {
	src := []byte("1 + 2")
	bin := NewNode(KindBinary, true, rng(0, 5), src)
	left := NewNode(KindInteger, true, rng(0, 1), src)
	op := NewNode("+", false, rng(2, 3), src)
	right := NewNode(KindInteger, true, rng(4, 5), src)
	bin.AddChild("left", left)
	bin.AddChild("operator", op)
	bin.AddChild("right", right)

	assert.Same(t, left, bin.Field("left"))
	assert.Same(t, op, bin.Field("operator"))
	assert.Nil(t, bin.Field("body"))
	assert.Equal(t, []*Node{left, right}, bin.Children())
	assert.Len(t, bin.AllChildren(), 3)
	assert.Same(t, op, bin.Token("-", "+"))
	assert.Equal(t, "right", bin.FieldOf(right))
	assert.Equal(t, "1 + 2", bin.Text())
	assert.Equal(t, "2", bin.NamedChild(1).Text())
	assert.Nil(t, bin.NamedChild(2))
	assert.Equal(t, []*Node{left, right}, bin.ChildrenOfKind(KindInteger))
}

func TestNode_Nil(t *testing.T) {
	var n *Node
	assert.Nil(t, n.Field("x"))
	assert.Nil(t, n.Children())
	assert.Nil(t, n.ChildOfKind(KindName))
	assert.Equal(t, "", n.Text())
	assert.Equal(t, "<nil>", n.String())
}

func TestNode_Error(t *testing.T) {
	n := NewNode(KindError, true, rng(0, 0), nil)
	assert.True(t, n.IsError())
	m := NewNode(KindName, true, rng(0, 0), nil)
	assert.False(t, m.IsError())
	m.MarkError(true)
	assert.True(t, m.IsError())
	assert.True(t, m.IsMissing())
}

func TestRange(t *testing.T) {
	r := Range{StartByte: 3, EndByte: 6, Start: Point{Row: 1, Column: 2}}
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
	assert.Equal(t, "2:3", r.String())
}
