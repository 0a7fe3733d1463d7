package aa

import (
	"aalower/internal/diag"
	"aalower/internal/ir"
	"aalower/internal/irbuild"
	"aalower/internal/rtlib"
)

// boundsCheck branches to a range violation when ret is null. On return the
// builder emits into the success block, which precedes the old scope end.
func boundsCheck(b *irbuild.Builder, loc diag.Loc, ret ir.Value) error {
	if b.Mod.FileName == nil {
		return diag.Internalf(loc, "bounds check in module %s without a source file name", b.Mod.Name)
	}
	fn, err := resolve(b, loc, rtlib.ArrayBounds)
	if err != nil {
		return err
	}
	if len(fn.Params) != 2 {
		return diag.Internalf(loc, "@%s declared with %d params: %w", fn.Name, len(fn.Params), ErrSignature)
	}
	if ft := b.Mod.FileName.Type().Pointee(); !ft.Equal(fn.Params[0]) {
		return diag.Internalf(loc, "@%s file argument %s, module file name is %s: %w", fn.Name, fn.Params[0], ft, ErrSignature)
	}
	line, err := param(b, loc, fn, 1, &ir.ConstInt{Ty: ir.I32, V: int64(loc.Line)})
	if err != nil {
		return err
	}

	oldend := b.ScopeEnd()
	failbb := b.NewBlock("aaboundscheckfail", oldend)
	okbb := b.NewBlock("aaboundsok", oldend)

	cond := b.ICmp(ir.CmpNe, &ir.ConstNull{Ty: ret.Type()}, ret)
	b.CondBr(cond, okbb, failbb)

	b.SetScope(failbb, okbb)
	file := b.Load(b.Mod.FileName)
	b.Log.Debug("aa bounds check", "fail", failbb.Name, "ok", okbb.Name, "line", loc.Line)
	if _, err := callRuntime(b, loc, fn, file, line); err != nil {
		return err
	}
	b.Unreachable()

	b.SetScope(okbb, oldend)
	return nil
}
