// Copyright © 2024 The ELPS authors

package ast

// Kind is the grammar production name of a node, as produced by the PHP
// grammar.  Anonymous tokens use their literal text as kind.  Only the
// productions the analyzer reasons about have constants; every other kind
// is handled by generic recursion.
type Kind string

// In reports whether k is one of kinds.
func (k Kind) In(kinds ...Kind) bool {
	for _, o := range kinds {
		if k == o {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

const (
	KindError   Kind = "ERROR"
	KindProgram Kind = "program"
	KindComment Kind = "comment"
	KindText    Kind = "text"
	KindPHPTag  Kind = "php_tag"

	// statements
	KindExpressionStatement Kind = "expression_statement"
	KindCompoundStatement   Kind = "compound_statement"
	KindColonBlock          Kind = "colon_block"
	KindIfStatement         Kind = "if_statement"
	KindElseIfClause        Kind = "else_if_clause"
	KindElseClause          Kind = "else_clause"
	KindSwitchStatement     Kind = "switch_statement"
	KindSwitchBlock         Kind = "switch_block"
	KindCaseStatement       Kind = "case_statement"
	KindDefaultStatement    Kind = "default_statement"
	KindWhileStatement      Kind = "while_statement"
	KindDoStatement         Kind = "do_statement"
	KindForStatement        Kind = "for_statement"
	KindForeachStatement    Kind = "foreach_statement"
	KindPair                Kind = "pair"
	KindTryStatement        Kind = "try_statement"
	KindCatchClause         Kind = "catch_clause"
	KindFinallyClause       Kind = "finally_clause"
	KindTypeList            Kind = "type_list"
	KindBreakStatement      Kind = "break_statement"
	KindContinueStatement   Kind = "continue_statement"
	KindReturnStatement     Kind = "return_statement"
	KindThrowExpression     Kind = "throw_expression"
	KindEchoStatement       Kind = "echo_statement"
	KindUnsetStatement      Kind = "unset_statement"
	KindGlobalDeclaration   Kind = "global_declaration"
	KindStaticDeclaration   Kind = "function_static_declaration"
	KindStaticVariable      Kind = "static_variable_declaration"
	KindExitStatement       Kind = "exit_statement"

	// declarations
	KindConstDeclaration        Kind = "const_declaration"
	KindConstElement            Kind = "const_element"
	KindNamespaceDefinition     Kind = "namespace_definition"
	KindNamespaceName           Kind = "namespace_name"
	KindNamespaceUseDeclaration Kind = "namespace_use_declaration"
	KindNamespaceUseClause      Kind = "namespace_use_clause"
	KindNamespaceUseGroup       Kind = "namespace_use_group"
	KindNamespaceAliasingClause Kind = "namespace_aliasing_clause"
	KindClassDeclaration        Kind = "class_declaration"
	KindInterfaceDeclaration    Kind = "interface_declaration"
	KindTraitDeclaration        Kind = "trait_declaration"
	KindEnumDeclaration         Kind = "enum_declaration"
	KindEnumCase                Kind = "enum_case"
	KindDeclarationList         Kind = "declaration_list"
	KindEnumDeclarationList     Kind = "enum_declaration_list"
	KindBaseClause              Kind = "base_clause"
	KindClassInterfaceClause    Kind = "class_interface_clause"
	KindUseDeclaration          Kind = "use_declaration"
	KindMethodDeclaration       Kind = "method_declaration"
	KindPropertyDeclaration     Kind = "property_declaration"
	KindPropertyElement         Kind = "property_element"
	KindPropertyInitializer     Kind = "property_initializer"
	KindFunctionDefinition      Kind = "function_definition"
	KindFormalParameters        Kind = "formal_parameters"
	KindSimpleParameter         Kind = "simple_parameter"
	KindVariadicParameter       Kind = "variadic_parameter"
	KindPromotionParameter      Kind = "property_promotion_parameter"
	KindAbstractModifier        Kind = "abstract_modifier"
	KindStaticModifier          Kind = "static_modifier"
	KindNamedType               Kind = "named_type"
	KindOptionalType            Kind = "optional_type"
	KindUnionType               Kind = "union_type"
	KindPrimitiveType           Kind = "primitive_type"
	KindReferenceModifier       Kind = "reference_modifier"
	KindVisibilityModifier      Kind = "visibility_modifier"
	KindNamespaceUseGroupClause Kind = "namespace_use_group_clause"

	// expressions
	KindAnonymousFunction       Kind = "anonymous_function"
	KindAnonymousFunctionLegacy Kind = "anonymous_function_creation_expression"
	KindAnonymousFunctionUse    Kind = "anonymous_function_use_clause"
	KindArrowFunction           Kind = "arrow_function"
	KindAssignment              Kind = "assignment_expression"
	KindReferenceAssignment     Kind = "reference_assignment_expression"
	KindAugmentedAssignment     Kind = "augmented_assignment_expression"
	KindBinary                  Kind = "binary_expression"
	KindUnary                   Kind = "unary_op_expression"
	KindUpdate                  Kind = "update_expression"
	KindCast                    Kind = "cast_expression"
	KindCastType                Kind = "cast_type"
	KindConditional             Kind = "conditional_expression"
	KindParenthesized           Kind = "parenthesized_expression"
	KindVariableName            Kind = "variable_name"
	KindDynamicVariableName     Kind = "dynamic_variable_name"
	KindName                    Kind = "name"
	KindQualifiedName           Kind = "qualified_name"
	KindRelativeScope           Kind = "relative_scope"
	KindInteger                 Kind = "integer"
	KindFloat                   Kind = "float"
	KindString                  Kind = "string"
	KindEncapsedString          Kind = "encapsed_string"
	KindHeredoc                 Kind = "heredoc"
	KindNowdoc                  Kind = "nowdoc"
	KindBoolean                 Kind = "boolean"
	KindNull                    Kind = "null"
	KindArrayCreation           Kind = "array_creation_expression"
	KindArrayElement            Kind = "array_element_initializer"
	KindSubscript               Kind = "subscript_expression"
	KindFunctionCall            Kind = "function_call_expression"
	KindArguments               Kind = "arguments"
	KindArgument                Kind = "argument"
	KindVariadicPlaceholder     Kind = "variadic_placeholder"
	KindMemberCall              Kind = "member_call_expression"
	KindNullsafeMemberCall      Kind = "nullsafe_member_call_expression"
	KindMemberAccess            Kind = "member_access_expression"
	KindNullsafeMemberAccess    Kind = "nullsafe_member_access_expression"
	KindScopedCall              Kind = "scoped_call_expression"
	KindScopedPropertyAccess    Kind = "scoped_property_access_expression"
	KindClassConstantAccess     Kind = "class_constant_access_expression"
	KindObjectCreation          Kind = "object_creation_expression"
	KindMatch                   Kind = "match_expression"
	KindMatchBlock              Kind = "match_block"
	KindMatchConditional        Kind = "match_conditional_expression"
	KindMatchDefault            Kind = "match_default_expression"
	KindMatchConditionList      Kind = "match_condition_list"
	KindListLiteral             Kind = "list_literal"
	KindByRef                   Kind = "by_ref"
	KindSequence                Kind = "sequence_expression"
	KindErrorSuppression        Kind = "error_suppression_expression"
	KindCloneExpression         Kind = "clone_expression"
	KindPrint                   Kind = "print_intrinsic"
	KindVariadicUnpacking       Kind = "variadic_unpacking"
	KindAnonymousClass          Kind = "anonymous_class"
	KindStringContent           Kind = "string_content"
	KindStringValue             Kind = "string_value"
	KindEscapeSequence          Kind = "escape_sequence"
	KindHeredocBody             Kind = "heredoc_body"
	KindNowdocBody              Kind = "nowdoc_body"
)
