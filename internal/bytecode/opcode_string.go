package bytecode

// Code generated by stringer would normally produce this table; kept
// hand-written here since Opcode grows during development and we
// don't invoke `go generate` in this environment. Mirrors the naming
// wazeroir's own operation kinds use (OperationKind.String()).
var opcodeNames = [...]string{
	OpLoadUndefined: "LoadUndefined", OpLoadNull: "LoadNull", OpLoadTrue: "LoadTrue",
	OpLoadFalse: "LoadFalse", OpLoadInt8: "LoadInt8", OpLoadInt32: "LoadInt32", OpLoadConst: "LoadConst",
	OpGetLocal: "GetLocal", OpSetLocal: "SetLocal", OpGetGlobal: "GetGlobal", OpSetGlobal: "SetGlobal",
	OpGetUpvalue: "GetUpvalue", OpSetUpvalue: "SetUpvalue", OpLoadThis: "LoadThis", OpCloseUpvalue: "CloseUpvalue",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod", OpNeg: "Neg", OpInc: "Inc",
	OpDec: "Dec", OpPow: "Pow", OpAddInt32: "AddInt32", OpAddNumber: "AddNumber", OpSubInt32: "SubInt32",
	OpSubNumber: "SubNumber", OpMulInt32: "MulInt32", OpMulNumber: "MulNumber",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor", OpBitNot: "BitNot", OpShl: "Shl",
	OpShr: "Shr", OpUshr: "Ushr",
	OpEq: "Eq", OpNe: "Ne", OpStrictEq: "StrictEq", OpStrictNe: "StrictNe", OpLt: "Lt", OpLe: "Le",
	OpGt: "Gt", OpGe: "Ge",
	OpJump: "Jump", OpJumpIfTrue: "JumpIfTrue", OpJumpIfFalse: "JumpIfFalse",
	OpJumpIfNullish: "JumpIfNullish", OpJumpIfNotNullish: "JumpIfNotNullish",
	OpReturn: "Return", OpReturnUndefined: "ReturnUndefined", OpTailCall: "TailCall",
	OpTryStart: "TryStart", OpTryEnd: "TryEnd", OpCatch: "Catch", OpThrow: "Throw",
	OpClosure: "Closure", OpAsyncClosure: "AsyncClosure", OpGeneratorClosure: "GeneratorClosure",
	OpCall: "Call", OpCallMethod: "CallMethod", OpCallSpread: "CallSpread", OpConstruct: "Construct",
	OpCallWithReceiver: "CallWithReceiver", OpCallEval: "CallEval",
	OpGetIterator: "GetIterator", OpGetAsyncIterator: "GetAsyncIterator", OpIteratorNext: "IteratorNext",
	OpIteratorClose: "IteratorClose", OpForInNext: "ForInNext",
	OpNewObject: "NewObject", OpNewArray: "NewArray", OpGetProp: "GetProp", OpSetProp: "SetProp",
	OpGetPropConst: "GetPropConst", OpSetPropConst: "SetPropConst", OpGetLocalProp: "GetLocalProp",
	OpGetElem: "GetElem", OpSetElem: "SetElem", OpDeleteProp: "DeleteProp",
	OpDefineProperty: "DefineProperty", OpDefineGetter: "DefineGetter", OpDefineSetter: "DefineSetter",
	OpDefineMethod: "DefineMethod", OpSpread: "Spread",
	OpDefineClass: "DefineClass", OpGetSuper: "GetSuper", OpCallSuper: "CallSuper",
	OpGetSuperProp: "GetSuperProp", OpSetHomeObject: "SetHomeObject",
	OpCallSuperForward: "CallSuperForward", OpCallSuperSpread: "CallSuperSpread",
	OpAwait: "Await", OpYield: "Yield", OpImport: "Import", OpExport: "Export",
	OpNop: "Nop", OpPop: "Pop", OpDup: "Dup", OpDebugger: "Debugger",
	OpCreateArguments: "CreateArguments", OpToNumber: "ToNumber", OpToString: "ToString",
	OpRequireCoercible: "RequireCoercible", OpTypeOf: "TypeOf", OpTypeOfName: "TypeOfName",
	OpInstanceOf: "InstanceOf", OpIn: "In", OpDeclareGlobalVar: "DeclareGlobalVar",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "Opcode(?)"
}
