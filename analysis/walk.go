// Copyright © 2024 The ELPS authors

package analysis

import (
	"github.com/luthersystems/phpsema/ast"
)

// handler analyzes one node kind in one pass.  It returns false to halt the
// walk.
type handler func(s *State, n *ast.Node) bool

// exprHandler folds one expression kind during the flow pass.
type exprHandler func(s *State, n *ast.Node) operand

var (
	declareHandlers map[ast.Kind]handler
	resolveHandlers map[ast.Kind]handler
	flowHandlers    map[ast.Kind]handler
	exprHandlers    map[ast.Kind]exprHandler
)

// The tables refer back to the walkers, so they are filled in init to
// avoid an initialization cycle.
func init() {
	declareHandlers = map[ast.Kind]handler{
		ast.KindNamespaceDefinition:     namespaceHandler,
		ast.KindNamespaceUseDeclaration: useHandler,
		ast.KindClassDeclaration:        declareClassHandler,
		ast.KindInterfaceDeclaration:    declareClassHandler,
		ast.KindTraitDeclaration:        declareClassHandler,
		ast.KindEnumDeclaration:         declareClassHandler,
		ast.KindFunctionDefinition:      declareFunctionHandler,
		ast.KindConstDeclaration:        declareConstHandler,
		ast.KindFunctionCall:            declareDefineHandler,
		ast.KindIfStatement:             conditionalHandler,
		ast.KindSwitchStatement:         conditionalHandler,
		ast.KindWhileStatement:          conditionalHandler,
		ast.KindDoStatement:             conditionalHandler,
		ast.KindForStatement:            conditionalHandler,
		ast.KindForeachStatement:        conditionalHandler,
		ast.KindTryStatement:            conditionalHandler,
	}
	resolveHandlers = map[ast.Kind]handler{
		ast.KindNamespaceDefinition:     namespaceHandler,
		ast.KindNamespaceUseDeclaration: useHandler,
		ast.KindClassDeclaration:        resolveClassHandler,
		ast.KindInterfaceDeclaration:    resolveClassHandler,
		ast.KindTraitDeclaration:        resolveClassHandler,
		ast.KindEnumDeclaration:         resolveClassHandler,
		ast.KindFunctionDefinition:      resolveFunctionHandler,
		ast.KindConstDeclaration:        resolveConstHandler,
		ast.KindFunctionCall:            resolveDefineHandler,
	}
	flowHandlers = map[ast.Kind]handler{
		ast.KindNamespaceDefinition:     namespaceHandler,
		ast.KindNamespaceUseDeclaration: useHandler,
		ast.KindClassDeclaration:        flowClassHandler,
		ast.KindInterfaceDeclaration:    flowClassHandler,
		ast.KindTraitDeclaration:        flowClassHandler,
		ast.KindEnumDeclaration:         flowClassHandler,
		ast.KindFunctionDefinition:      flowFunctionHandler,
		ast.KindConstDeclaration:        flowConstHandler,
		ast.KindExpressionStatement:     expressionStatementHandler,
		ast.KindEchoStatement:           evalChildrenHandler,
		ast.KindReturnStatement:         returnHandler,
		ast.KindBreakStatement:          jumpHandler,
		ast.KindContinueStatement:       jumpHandler,
		ast.KindExitStatement:           exitHandler,
		ast.KindIfStatement:             conditional(ifHandler),
		ast.KindSwitchStatement:         conditional(switchHandler),
		ast.KindWhileStatement:          conditional(whileHandler),
		ast.KindDoStatement:             conditional(doHandler),
		ast.KindForStatement:            conditional(forHandler),
		ast.KindForeachStatement:        conditional(foreachHandler),
		ast.KindTryStatement:            conditional(tryHandler),
		ast.KindUnsetStatement:          unsetHandler,
		ast.KindGlobalDeclaration:       globalHandler,
		ast.KindStaticDeclaration:       staticHandler,
		ast.KindName:                    skipHandler,
		ast.KindQualifiedName:           skipHandler,
	}
	exprHandlers = map[ast.Kind]exprHandler{
		ast.KindInteger:                 evalInteger,
		ast.KindFloat:                   evalFloat,
		ast.KindString:                  evalString,
		ast.KindEncapsedString:          evalString,
		ast.KindHeredoc:                 evalString,
		ast.KindNowdoc:                  evalString,
		ast.KindBoolean:                 evalBoolean,
		ast.KindNull:                    evalNull,
		ast.KindName:                    evalConstant,
		ast.KindQualifiedName:           evalConstant,
		ast.KindVariableName:            evalVariable,
		ast.KindDynamicVariableName:     evalDynamicVariable,
		ast.KindParenthesized:           evalParenthesized,
		ast.KindAssignment:              evalAssignment,
		ast.KindReferenceAssignment:     evalAssignment,
		ast.KindAugmentedAssignment:     evalAugmentedAssignment,
		ast.KindBinary:                  evalBinary,
		ast.KindUnary:                   evalUnary,
		ast.KindUpdate:                  evalUpdate,
		ast.KindCast:                    evalCast,
		ast.KindConditional:             evalConditional,
		ast.KindArrayCreation:           evalArray,
		ast.KindSubscript:               evalSubscript,
		ast.KindFunctionCall:            evalFunctionCall,
		ast.KindMemberCall:              evalMemberCall,
		ast.KindNullsafeMemberCall:      evalMemberCall,
		ast.KindMemberAccess:            evalMemberAccess,
		ast.KindNullsafeMemberAccess:    evalMemberAccess,
		ast.KindScopedCall:              evalScopedCall,
		ast.KindScopedPropertyAccess:    evalScopedPropertyAccess,
		ast.KindClassConstantAccess:     evalClassConstant,
		ast.KindObjectCreation:          evalNew,
		ast.KindAnonymousFunction:       evalClosure,
		ast.KindAnonymousFunctionLegacy: evalClosure,
		ast.KindArrowFunction:           evalArrowFunction,
		ast.KindMatch:                   evalMatch,
		ast.KindThrowExpression:         evalThrow,
		ast.KindPrint:                   evalPrint,
		ast.KindCloneExpression:         evalClone,
		ast.KindErrorSuppression:        evalSuppressed,
		ast.KindSequence:                evalSequence,
		ast.KindByRef:                   evalFirstChild,
		ast.KindVariadicUnpacking:       evalFirstChild,
	}
}

func (s *State) handlers() map[ast.Kind]handler {
	switch s.Pass {
	case 1:
		return declareHandlers
	case 2:
		return resolveHandlers
	}
	return flowHandlers
}

// visit dispatches n to the handler of the current pass.  Kinds without a
// handler are recursed into; in the flow pass expressions are folded.
func (s *State) visit(n *ast.Node) bool {
	if s.halted {
		return false
	}
	if h, ok := s.handlers()[n.Kind()]; ok {
		return h(s, n) && !s.halted
	}
	if s.Pass == 3 {
		if _, ok := exprHandlers[n.Kind()]; ok {
			s.eval(n)
			return !s.halted
		}
	}
	return s.walkChildren(n)
}

// walkChildren visits the named children of n in order.  It keeps track of
// the ancestor path and the preceding doc comment, and stops at the first
// child that contains the offset of a pending lookup.
func (s *State) walkChildren(n *ast.Node) bool {
	s.path = append(s.path, n)
	defer func() { s.path = s.path[:len(s.path)-1] }()
	for _, c := range n.Children() {
		if !s.visit(c) {
			return false
		}
		if s.serviceLookup(c) {
			return false
		}
		if c.Kind() == ast.KindComment {
			s.LastDoc = c
		} else {
			s.LastDoc = nil
		}
	}
	return true
}

// walkNodes visits a list of sibling statements the way walkChildren
// visits the children of their parent.
func (s *State) walkNodes(parent *ast.Node, nodes []*ast.Node) bool {
	s.path = append(s.path, parent)
	defer func() { s.path = s.path[:len(s.path)-1] }()
	for _, c := range nodes {
		if !s.visit(c) {
			return false
		}
		if s.serviceLookup(c) {
			return false
		}
		if c.Kind() == ast.KindComment {
			s.LastDoc = c
		} else {
			s.LastDoc = nil
		}
	}
	return true
}

// eval folds the expression n in the current scope.
func (s *State) eval(n *ast.Node) operand {
	if n == nil || s.halted {
		return operand{}
	}
	s.path = append(s.path, n)
	var out operand
	if h, ok := exprHandlers[n.Kind()]; ok {
		out = h(s, n)
	} else {
		if n.IsError() {
			s.debug(n, "expression contains a syntax error")
		} else if _, ok := flowHandlers[n.Kind()]; !ok {
			s.debug(n, "unhandled construct")
		}
		s.path = s.path[:len(s.path)-1]
		s.visit(n)
		s.serviceLookup(n)
		return operand{}
	}
	s.path = s.path[:len(s.path)-1]
	s.evaluated, s.result = n, out
	s.serviceLookup(n)
	return out
}

// touch services a pending lookup for a node that is not evaluated, such
// as the target of an assignment.
func (s *State) touch(n *ast.Node) {
	if n != nil {
		s.serviceLookup(n)
	}
}

func skipHandler(*State, *ast.Node) bool { return true }

// conditionalHandler recurses while counting conditional nesting.
func conditionalHandler(s *State, n *ast.Node) bool {
	ok := true
	s.conditionally(func() { ok = s.walkChildren(n) })
	return ok
}

func evalChildrenHandler(s *State, n *ast.Node) bool {
	for _, c := range n.Children() {
		if c.Kind() == ast.KindComment {
			continue
		}
		s.eval(c)
		if s.halted {
			return false
		}
	}
	return true
}

func evalFirstChild(s *State, n *ast.Node) operand {
	return s.eval(n.NamedChild(0))
}
