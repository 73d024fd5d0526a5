// Package math provides elementwise arithmetic and bitwise blocks.
//
// Constant-operand blocks (add_const, subtract_const, multiply_const,
// divide_const) apply a fixed "value" to every sample of "in" and run
// vectorized. N-ary blocks (add, subtract, multiply, divide, min, max and,
// for integer samples, and, or, xor) fold the ports "in#0" .. "in#<n-1>"
// left to right into "out"; the arity is set with "n_inputs" and a single
// input passes through unchanged. Negate and not are unary.
//
// Types are registered per sample type as "math.<op>:<T>", e.g.
// "math.add:float32" or "math.xor:uint8".
package math
