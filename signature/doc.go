// Package signature converts between command-line text and the core values
// an exported function takes and returns.
//
// A Signature comes from the export's declared core types:
//
//	sig, err := signature.FromDefinition("add", def)
//	params, err := sig.Encode([]string{"2", "4"})
//	results, err := fn.Call(ctx, params...)
//	fmt.Println(strings.Join(sig.Decode(results), " "))
//
// Every token is parsed with range checking. A bare i32 or i64 accepts both
// the signed and the unsigned range of its width and prints signed.
//
// WIT function declarations can refine how integers are read and printed
// (u32, s8, bool, char and so on). Annotations never change the core types;
// an annotation that lowers to a different core type is a type mismatch.
//
//	ann, err := signature.ParseWIT("add: func(a: u32, b: u32) -> u32;")
//	sig, err = ann.Refine(sig)
package signature
