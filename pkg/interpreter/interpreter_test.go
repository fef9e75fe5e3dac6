package interpreter

import (
	"bytes"
	"strings"
	"testing"

	"lox/interpreter-go/pkg/ast"
	"lox/interpreter-go/pkg/lexer"
	"lox/interpreter-go/pkg/parser"
	"lox/interpreter-go/pkg/resolver"
	"lox/interpreter-go/pkg/runtime"
)

// runSource pushes source through the whole scan→parse→resolve→interpret
// pipeline and returns the captured print output plus any runtime error.
// Static errors fail the test.
func runSource(t *testing.T, source string) (string, error) {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(source)
	if len(lexDiags) > 0 {
		t.Fatalf("unexpected lex errors: %v", lexDiags)
	}
	statements, parseDiags := parser.Parse(tokens)
	if len(parseDiags) > 0 {
		t.Fatalf("unexpected parse errors: %v", parseDiags)
	}
	locals, resolveDiags := resolver.Resolve(statements)
	if len(resolveDiags) > 0 {
		t.Fatalf("unexpected resolve errors: %v", resolveDiags)
	}

	interp := New()
	var out bytes.Buffer
	interp.SetOutput(&out)
	interp.BindLocals(locals)
	err := interp.Interpret(statements)
	return out.String(), err
}

func expectOutput(t *testing.T, source, want string) {
	t.Helper()
	got, err := runSource(t, source)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got != want {
		t.Fatalf("output mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func expectRuntimeError(t *testing.T, source, fragment string) {
	t.Helper()
	_, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected runtime error containing %q, got none", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("error %q does not contain %q", err.Error(), fragment)
	}
}

//-----------------------------------------------------------------------------
// Scoping and closures
//-----------------------------------------------------------------------------

func TestShadowingRevertsAfterBlock(t *testing.T) {
	expectOutput(t, `
		var a = 1;
		{
			var a = 2;
			print a;
		}
		print a;
	`, "2\n1\n")
}

func TestClosureCapturesDefiningScope(t *testing.T) {
	expectOutput(t, `
		fun counter() {
			var i = 0;
			fun inc() {
				i = i + 1;
				return i;
			}
			return inc;
		}
		var c = counter();
		print c();
		print c();
	`, "1\n2\n")
}

func TestClosuresAliasNotCopy(t *testing.T) {
	expectOutput(t, `
		var shared;
		{
			var x = "before";
			fun readX() { return x; }
			fun writeX(v) { x = v; }
			writeX("after");
			shared = readX();
		}
		print shared;
	`, "after\n")
}

func TestResolvedSiteSurvivesLaterGlobalShadow(t *testing.T) {
	// The classic binding test: showA must keep seeing the a captured at
	// its definition site even after the block declares its own a.
	expectOutput(t, `
		var a = "global";
		{
			fun showA() { print a; }
			showA();
			var a = "block";
			showA();
		}
	`, "global\nglobal\n")
}

func TestForLoopDesugaring(t *testing.T) {
	expectOutput(t, `
		var total = 0;
		for (var i = 1; i <= 4; i = i + 1) {
			total = total + i;
		}
		print total;
	`, "10\n")
}

//-----------------------------------------------------------------------------
// Operators, truthiness, equality
//-----------------------------------------------------------------------------

func TestNumberStringConcatenation(t *testing.T) {
	expectOutput(t, `print 1 + "x";`, "1x\n")
	expectOutput(t, `print "x" + 1;`, "x1\n")
	expectOutput(t, `print 1.5 + "!";`, "1.5!\n")
}

func TestArithmeticAndComparison(t *testing.T) {
	expectOutput(t, `print 6 / 2 * 3 - 1;`, "8\n")
	expectOutput(t, `print 1 < 2;`, "true\n")
	expectOutput(t, `print 2 <= 1;`, "false\n")
	expectOutput(t, `print -(3 + 4);`, "-7\n")
}

func TestEqualityRules(t *testing.T) {
	expectOutput(t, `print nil == nil;`, "true\n")
	expectOutput(t, `print nil == 0;`, "false\n")
	expectOutput(t, `print 1 == "1";`, "false\n")
	expectOutput(t, `print "a" == "a";`, "true\n")
	expectOutput(t, `print 1 != 2;`, "true\n")
}

func TestInstancesCompareByIdentity(t *testing.T) {
	expectOutput(t, `
		class Point {}
		var a = Point();
		var b = Point();
		a.x = 1;
		b.x = 1;
		print a == b;
		print a == a;
	`, "false\ntrue\n")
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, `
		if (0) print "zero truthy";
		if ("") print "empty truthy";
		if (nil) print "nil truthy"; else print "nil falsy";
		if (false) print "false truthy"; else print "false falsy";
	`, "zero truthy\nempty truthy\nnil falsy\nfalse falsy\n")
}

func TestLogicalShortCircuit(t *testing.T) {
	expectOutput(t, `
		print "yes" or missing();
		print false and missing();
		print nil or "fallback";
		print 1 and 2;
	`, "yes\nfalse\nfallback\n2\n")
}

func TestPrintDisplayForms(t *testing.T) {
	expectOutput(t, `
		fun f() {}
		class C {}
		var c = C();
		print 3;
		print 2.5;
		print true;
		print nil;
		print f;
		print C;
		print clock == clock;
		print c;
	`, "3\n2.5\ntrue\nnil\n<fn f>\n<class C>\ntrue\nC instance\n")
}

//-----------------------------------------------------------------------------
// Functions and return unwinding
//-----------------------------------------------------------------------------

func TestBareReturnYieldsNil(t *testing.T) {
	expectOutput(t, `
		fun f() { return; }
		print f();
	`, "nil\n")
}

func TestFallThroughYieldsNil(t *testing.T) {
	expectOutput(t, `
		fun f() { 1 + 1; }
		print f();
	`, "nil\n")
}

func TestReturnUnwindsLoopsAndBlocks(t *testing.T) {
	expectOutput(t, `
		fun firstOver(limit) {
			var i = 0;
			while (true) {
				i = i + 1;
				{
					if (i > limit) {
						return i;
					}
				}
			}
		}
		print firstOver(3);
	`, "4\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 2) + fib(n - 1);
		}
		print fib(10);
	`, "55\n")
}

func TestClockIsCallable(t *testing.T) {
	expectOutput(t, `print clock() >= 0;`, "true\n")
}

//-----------------------------------------------------------------------------
// Classes, instances, inheritance
//-----------------------------------------------------------------------------

func TestFieldsShadowMethods(t *testing.T) {
	expectOutput(t, `
		class Thing {
			label() { return "method"; }
		}
		var t = Thing();
		print t.label();
		t.label = "field";
		print t.label;
	`, "method\nfield\n")
}

func TestInitializerAlwaysReturnsInstance(t *testing.T) {
	expectOutput(t, `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
		}
		var p = Point(1, 2);
		print p.x + p.y;
		print p.init(5, 6) == p;
		print p.x;
	`, "3\ntrue\n5\n")
}

func TestEarlyReturnInInitializer(t *testing.T) {
	expectOutput(t, `
		class Guarded {
			init(ok) {
				if (!ok) return;
				this.ready = true;
			}
		}
		print Guarded(false) == nil;
		print Guarded(true).ready;
	`, "false\ntrue\n")
}

func TestClassArityFollowsInit(t *testing.T) {
	expectRuntimeError(t, `
		class Pair { init(a, b) {} }
		Pair(1);
	`, "Expected 2 arguments but got 1.")
}

func TestMethodBindingKeepsReceiver(t *testing.T) {
	expectOutput(t, `
		class Person {
			init(name) { this.name = name; }
			who() { return this.name; }
		}
		var bound = Person("ada").who;
		print bound();
	`, "ada\n")
}

func TestInheritanceDispatchAndSuper(t *testing.T) {
	expectOutput(t, `
		class A {
			greet() { return "A"; }
		}
		class B < A {
			greet() { return super.greet() + "B"; }
		}
		print B().greet();
	`, "AB\n")
}

func TestOverrideDispatchesToMostDerived(t *testing.T) {
	expectOutput(t, `
		class Base {
			describe() { return "base " + this.tag(); }
			tag() { return "?"; }
		}
		class Derived < Base {
			tag() { return "derived"; }
		}
		print Derived().describe();
	`, "base derived\n")
}

func TestSuperSkipsExactlyOneLevel(t *testing.T) {
	expectOutput(t, `
		class A { m() { return "A"; } }
		class B < A { m() { return "B"; } }
		class C < B { m() { return super.m() + "C"; } }
		print C().m();
	`, "BC\n")
}

func TestInheritedMethodFoundThroughChain(t *testing.T) {
	expectOutput(t, `
		class A { hello() { return "hi"; } }
		class B < A {}
		class C < B {}
		print C().hello();
	`, "hi\n")
}

func TestClassSelfReferenceInMethod(t *testing.T) {
	expectOutput(t, `
		class Counter {
			make() { return Counter(); }
		}
		print Counter().make();
	`, "Counter instance\n")
}

//-----------------------------------------------------------------------------
// Runtime errors
//-----------------------------------------------------------------------------

func TestUndefinedVariable(t *testing.T) {
	expectRuntimeError(t, `print missing;`, "Undefined variable 'missing'.")
}

func TestUndefinedAssignment(t *testing.T) {
	expectRuntimeError(t, `missing = 1;`, "Undefined variable 'missing'.")
}

func TestUnaryTypeError(t *testing.T) {
	expectRuntimeError(t, `-"abc";`, "Operand must be a number.")
}

func TestBinaryTypeError(t *testing.T) {
	expectRuntimeError(t, `1 < "abc";`, "Operands must be numbers.")
	expectRuntimeError(t, `true + nil;`, "Operands must be two numbers or two strings.")
}

func TestCallNonCallable(t *testing.T) {
	expectRuntimeError(t, `"text"();`, "Can only call functions and classes.")
}

func TestArityMismatch(t *testing.T) {
	expectRuntimeError(t, `
		fun two(a, b) {}
		two(1, 2, 3);
	`, "Expected 2 arguments but got 3.")
}

func TestPropertyOnNonInstance(t *testing.T) {
	expectRuntimeError(t, `true.field;`, "Only instances have properties.")
	expectRuntimeError(t, `1.field = 2;`, "Only instances have fields.")
}

func TestUndefinedProperty(t *testing.T) {
	expectRuntimeError(t, `
		class Empty {}
		Empty().nothing;
	`, "Undefined property 'nothing'.")
}

func TestSuperclassMustBeClass(t *testing.T) {
	expectRuntimeError(t, `
		var NotAClass = "oops";
		class Sub < NotAClass {}
	`, "Superclass must be a class.")
}

func TestRuntimeErrorCarriesPosition(t *testing.T) {
	_, err := runSource(t, "var ok = 1;\nprint missing;")
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if !strings.HasPrefix(err.Error(), "[line 2:") {
		t.Fatalf("error lacks position prefix: %q", err.Error())
	}
}

func TestExecutionStopsAtFirstError(t *testing.T) {
	out, err := runSource(t, `
		print "before";
		missing;
		print "after";
	`)
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	if out != "before\n" {
		t.Fatalf("expected execution to stop after first error, got output %q", out)
	}
}

//-----------------------------------------------------------------------------
// Direct API
//-----------------------------------------------------------------------------

func TestEvaluateExpression(t *testing.T) {
	interp := New()
	value, err := interp.Evaluate(ast.Add(ast.Num(40), ast.Num(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := value.(runtime.NumberValue)
	if !ok || n.Val != 42 {
		t.Fatalf("unexpected value %#v", value)
	}
}

func TestBindLocalsMergesAcrossCalls(t *testing.T) {
	// Two REPL lines resolved separately must both stay resolvable.
	interp := New()
	var out bytes.Buffer
	interp.SetOutput(&out)

	first := mustParse(t, `fun held() { var x = "kept"; fun get() { return x; } return get; } var g = held();`)
	locals, diags := resolver.Resolve(first)
	if len(diags) > 0 {
		t.Fatalf("resolve: %v", diags)
	}
	interp.BindLocals(locals)
	if err := interp.Interpret(first); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	second := mustParse(t, `print g();`)
	locals2, diags2 := resolver.Resolve(second)
	if len(diags2) > 0 {
		t.Fatalf("resolve: %v", diags2)
	}
	interp.BindLocals(locals2)
	if err := interp.Interpret(second); err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if out.String() != "kept\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func mustParse(t *testing.T, source string) []ast.Statement {
	t.Helper()
	tokens, lexDiags := lexer.Tokenize(source)
	if len(lexDiags) > 0 {
		t.Fatalf("lex: %v", lexDiags)
	}
	statements, parseDiags := parser.Parse(tokens)
	if len(parseDiags) > 0 {
		t.Fatalf("parse: %v", parseDiags)
	}
	return statements
}

func TestStringifyNumberForms(t *testing.T) {
	cases := []struct {
		value runtime.Value
		want  string
	}{
		{runtime.NumberValue{Val: 1}, "1"},
		{runtime.NumberValue{Val: 1.5}, "1.5"},
		{runtime.NumberValue{Val: -0.25}, "-0.25"},
		{runtime.NumberValue{Val: 1000000}, "1000000"},
		{runtime.NilValue{}, "nil"},
		{runtime.BoolValue{Val: true}, "true"},
		{runtime.StringValue{Val: "plain"}, "plain"},
	}
	for _, tc := range cases {
		if got := Stringify(tc.value); got != tc.want {
			t.Fatalf("Stringify(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
