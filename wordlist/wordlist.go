/*
 * Copyright (c) 2024, The ebox Authors
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are met:
 *
 *  * Redistributions of source code must retain the above copyright notice,
 *    this list of conditions and the following disclaimer.
 *
 *  * Redistributions in binary form must reproduce the above copyright notice,
 *    this list of conditions and the following disclaimer in the documentation
 *    and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
 * AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
 * IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
 * ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
 * LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
 * CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
 * SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
 * INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
 * CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
 * ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

// Package wordlist is the fixed 256-entry verification word list read aloud
// over voice/chat to detect a replayed challenge. The exact words are not
// cryptographically significant, only their count and byte-identical
// ordering across implementations (spec §6/§9).
package wordlist

import "errors"

// ErrUnknownWord is returned by Index when a word isn't in the list.
var ErrUnknownWord = errors.New("wordlist: word not found")

// words holds 256 distinct entries, grouped by initial letter. Neighbouring
// entries often share their first syllable ("abacus", "abdomen", "abroad"),
// so words are told apart by the whole word, not by its opening sound.
var words = [256]string{
	"abacus", "abdomen", "abroad", "absent", "absorb", "abyss", "acetone", "aching",
	"acid", "acorn", "acre", "acrobat", "active", "actor", "adapt", "adept",
	"adjust", "admiral", "adobe", "adrift", "advance", "advice", "aerial", "afloat",
	"afraid", "after", "agenda", "agile", "agony", "airline", "airport", "alarm",
	"album", "alcove", "alert", "algebra", "alias", "alibi", "alien", "alkali",
	"almond", "alpine", "altar", "amazon", "amber", "amigo", "ammo", "amount",
	"amulet", "anchor", "angle", "animal", "ankle", "anthem", "antler", "anvil",
	"apex", "aphid", "apple", "apron", "aqua", "arbor", "arcade", "archer",
	"arctic", "arena", "argue", "arid", "armor", "aroma", "arrow", "artist",
	"ashore", "aspect", "asphalt", "aspire", "asset", "aster", "astro", "athlete",
	"atlas", "atom", "attic", "auburn", "audio", "august", "aunt", "author",
	"auto", "avenue", "avid", "avocado", "awake", "award", "axle", "azure",
	"badge", "baffle", "bagel", "baker", "balance", "balcony", "bamboo", "banjo",
	"barber", "bargain", "barley", "barrel", "basalt", "basil", "basin", "basket",
	"battle", "beacon", "beagle", "beaker", "beaver", "beetle", "belfry", "bellow",
	"bench", "bengal", "beret", "berry", "bicycle", "bigfoot", "billow", "birch",
	"bishop", "bitter", "blanket", "blazer", "blend", "blimp", "blink", "bloom",
	"blossom", "blouse", "bobcat", "bolt", "bonfire", "bonus", "border", "boss",
	"bottle", "boulder", "bounty", "bovine", "bowler", "boxer", "bramble", "brand",
	"brass", "bravo", "breeze", "brick", "bridge", "bright", "bristle", "bronze",
	"brook", "bucket", "buckle", "buffalo", "bugle", "bulb", "bullet", "bumper",
	"bundle", "bunker", "burro", "bushel", "butler", "cabana", "cabin", "cactus",
	"cadet", "camel", "canal", "candle", "canoe", "canopy", "canyon", "caper",
	"carbon", "carrot", "castle", "catfish", "cedar", "cellar", "cement", "census",
	"cereal", "chalet", "chant", "chapel", "charm", "cherry", "chess", "chestnut",
	"chisel", "chorus", "cider", "cinder", "circle", "cirrus", "citrus", "clamp",
	"clarity", "clover", "cobalt", "cobra", "coil", "collar", "comet", "compass",
	"condor", "copper", "coral", "cosmos", "cotton", "cougar", "cradle", "crater",
	"cricket", "cruise", "crystal", "cuckoo", "cupid", "cursor", "custard", "cutlass",
	"cypress", "dagger", "dahlia", "damsel", "dapple", "debris", "decade", "deckle",
	"deluge", "dental", "depot", "desert", "diesel", "dimple", "diplo", "disco",
	"dodge", "domino", "dorsal", "dragon", "drifter", "druid", "duchess", "duckling",
}

// Word returns the verification word at idx. idx ranges over the whole
// byte value space, so this never errors.
func Word(idx uint8) string {
	return words[idx]
}

var byWord map[string]uint8

func init() {
	byWord = make(map[string]uint8, len(words))
	for i, w := range words {
		byWord[w] = uint8(i)
	}
}

// Index looks up a word's index, for parsing a spoken-back verification
// phrase.
func Index(word string) (uint8, error) {
	idx, ok := byWord[word]
	if !ok {
		return 0, ErrUnknownWord
	}
	return idx, nil
}
