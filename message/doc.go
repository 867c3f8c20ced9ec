// Package message implements the text codec of the robot controller protocol.
//
// A request is a command name optionally followed by tagged parameters and always
// terminated by a semicolon:
//
//	powerOn;
//	setCoords:#X7#Y4;
//
// A reply echoes the command name, an optional result token and optional state tokens:
//
//	setCoords:done;
//	getCoords:#X4#Y2;
//	powerOn:fail_'RobotPowerCannotBeSwitched';
//
// State tokens carrying a letter tag followed by a number (X4, RX90, Z-653) are keyed by the
// tag. Any other token is keyed by its position among the untagged tokens; the quoted detail
// of a failure result is always position 0. Token values are decoded into the tagged Value
// variants IntValue, FloatValue and StringValue, trying integer, then float, then string.
package message
