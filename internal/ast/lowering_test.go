package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleProgram = `{
  "type": "Program",
  "range": [0, 10],
  "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 10}},
  "body": [
    {
      "type": "ExpressionStatement",
      "range": [0, 10],
      "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 10}},
      "expression": {
        "type": "Identifier",
        "name": "x",
        "range": [0, 1],
        "loc": {"start": {"line": 1, "column": 0}, "end": {"line": 1, "column": 1}}
      }
    }
  ]
}`

func TestFromESTreeJSON_BasicShape(t *testing.T) {
	root, err := FromESTreeJSON("f.js", []byte(sampleProgram))
	require.NoError(t, err)
	require.Equal(t, "Program", root.Type)

	body := root.FieldList("body")
	require.Len(t, body, 1)
	require.Equal(t, "ExpressionStatement", body[0].Type)
	require.Same(t, root, body[0].Parent)

	expr := body[0].Field("expression")
	require.NotNil(t, expr)
	require.Equal(t, "Identifier", expr.Type)
	require.Equal(t, "x", expr.Name)
}

func TestAssignIDs_PreOrderDeterministic(t *testing.T) {
	root, err := FromESTreeJSON("f.js", []byte(sampleProgram))
	require.NoError(t, err)
	AssignIDs(root, 0)

	var ids []int
	Walk(root, func(n *Node) { ids = append(ids, n.ID) })
	require.Equal(t, []int{0, 1, 2}, ids)

	root2, err := FromESTreeJSON("f.js", []byte(sampleProgram))
	require.NoError(t, err)
	AssignIDs(root2, 0)
	var ids2 []int
	Walk(root2, func(n *Node) { ids2 = append(ids2, n.ID) })
	require.Equal(t, ids, ids2)
}
