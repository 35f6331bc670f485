package utils

// RunVOPLPACK2VOPL extracts all .vopl files from a .voplpack into the given output directory.
// Entry names inside the pack are kept.
func RunVOPLPACK2VOPL(inPackPath, outDir string) error {
	return UnpackToDir(inPackPath, outDir)
}
