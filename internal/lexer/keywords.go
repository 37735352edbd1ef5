package lexer

import "strings"

// reserved is the set of words scanned as Keyword tokens. Anything else
// made of word characters is an Identifier.
var reserved = makeSet(`
IDENTIFICATION ID ENVIRONMENT DATA PROCEDURE DIVISION SECTION
PROGRAM-ID AUTHOR INSTALLATION DATE-WRITTEN DATE-COMPILED SECURITY REMARKS
CONFIGURATION SOURCE-COMPUTER OBJECT-COMPUTER SPECIAL-NAMES
INPUT-OUTPUT FILE-CONTROL I-O-CONTROL
FILE WORKING-STORAGE LOCAL-STORAGE LINKAGE SCREEN REPORT COMMUNICATION
FD SD SELECT ASSIGN OPTIONAL ORGANIZATION ACCESS MODE SEQUENTIAL LINE
INDEXED RELATIVE RANDOM DYNAMIC RECORD RECORDS KEY ALTERNATE DUPLICATES STATUS
BLOCK CONTAINS CHARACTERS LABEL STANDARD OMITTED LINAGE RECORDING FOOTING
TOP BOTTOM LINES WORDS MEMORY SIZE COLLATING SEQUENCE SEGMENT-LIMIT
DEBUGGING CURRENCY SIGN DECIMAL-POINT COMMA CLASS SYMBOLIC ALPHABET
SAME AREA MULTIPLE TAPE APPLY WRITE-ONLY SORT-MERGE
PIC PICTURE USAGE VALUE VALUES OCCURS TIMES DEPENDING REDEFINES RENAMES
FILLER SYNC SYNCHRONIZED LEFT RIGHT JUST JUSTIFIED BLANK WHEN SEPARATE
CHARACTER LEADING TRAILING EXTERNAL GLOBAL ASCENDING DESCENDING
DISPLAY BINARY COMP COMP-1 COMP-2 COMP-3 COMP-4 COMP-5
COMPUTATIONAL COMPUTATIONAL-1 COMPUTATIONAL-2 COMPUTATIONAL-3
COMPUTATIONAL-4 COMPUTATIONAL-5 PACKED-DECIMAL INDEX POINTER NATIONAL
ZERO ZEROS ZEROES SPACE SPACES HIGH-VALUE HIGH-VALUES LOW-VALUE LOW-VALUES
QUOTE QUOTES NULL NULLS ALL TRUE FALSE
ACCEPT ADD ALTER CALL CANCEL CLOSE COMPUTE CONTINUE DELETE DIVIDE ENTRY
EVALUATE EXEC EXIT GO GOBACK IF INITIALIZE INSPECT INVOKE MERGE MOVE
MULTIPLY NEXT OPEN PERFORM READ RELEASE RETURN REWRITE SEARCH SET SORT
START STOP STRING SUBTRACT UNSTRING USE WRITE COPY
END-ACCEPT END-ADD END-CALL END-COMPUTE END-DELETE END-DISPLAY END-DIVIDE
END-EVALUATE END-EXEC END-IF END-INVOKE END-MULTIPLY END-PERFORM END-READ
END-RETURN END-REWRITE END-SEARCH END-START END-STRING END-SUBTRACT
END-UNSTRING END-WRITE END-OF-PAGE EOP
THEN ELSE OTHER ALSO ANY NOT AND OR IS ARE THAN EQUAL GREATER LESS
NUMERIC ALPHABETIC ALPHABETIC-LOWER ALPHABETIC-UPPER POSITIVE NEGATIVE
TO FROM BY INTO GIVING USING RETURNING REMAINDER OF IN ON AT END
THRU THROUGH UNTIL VARYING WITH TEST BEFORE AFTER SENTENCE PROCEED
RUN PROGRAM PARAGRAPH CYCLE DECLARATIVES ERROR EXCEPTION OVERFLOW INVALID
INPUT OUTPUT I-O EXTEND REEL UNIT REMOVAL LOCK NO REWIND
CORRESPONDING CORR ROUNDED DELIMITED DELIMITER COUNT TALLYING REPLACING
CONVERTING FIRST INITIAL UPON ADVANCING PAGE REFERENCE CONTENT
ADDRESS LENGTH FUNCTION DATE DAY DAY-OF-WEEK TIME COMMON
`)

func makeSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// IsReserved reports whether the upper-cased word is a reserved word
func IsReserved(word string) bool {
	_, ok := reserved[word]
	return ok
}
