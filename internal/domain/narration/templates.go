package narration

// Template placeholders are {name}; colored spans are written as
// (color{placeholder}) and survive formatting as (colorValue).
var (
	skillTemplates = map[Style][]string{
		StyleNoPower: {
			"(bisque{characterName}) reaches for (blue{skillName}), but the dantian is as dry as a riverbed in drought",
			"(bisque{characterName}) tries to turn (blue{skillName}) over, and the qi sinks away like a clay ox into the sea",
			"(bisque{characterName}) forms the seal of (blue{skillName}) with trembling hands, yet no power answers",
			"The flow of qi breaks and (bisque{characterName}) cannot hold (blue{skillName}) together",
			"Drained to the bone, (bisque{characterName}) feels the world spin before (blue{skillName}) can take shape",
			"(bisque{characterName}) gathers a thread of qi for (blue{skillName}), and it scatters before it forms",
		},
		StyleNormal: {
			"(bisque{characterName}) flicks a sleeve and (blue{skillName}) unfolds without a sound",
			"Eyes half closed, (bisque{characterName}) pinches a seal and (blue{skillName}) follows",
			"(bisque{characterName}) lets the qi run and (blue{skillName}) takes shape like flowing water",
			"With a long cry (bisque{characterName}) sends out (blue{skillName})",
			"A glint of spirit light, and (bisque{characterName}) has already cast (blue{skillName})",
			"Qi ripples at the fingertips of (bisque{characterName}) as (blue{skillName}) bursts out",
		},
		StylePowerful: {
			"(bisque{characterName}) roars at the sky and the qi within surges into a boundless (blue{skillName})",
			"Heaven and earth gather their breath as (bisque{characterName}) completes the seal of (blue{skillName})",
			"(bisque{characterName}) pours every channel dry to drive (blue{skillName}) to its peak",
			"The ground trembles and spirit light blooms around (bisque{characterName}), unleashing (blue{skillName})",
			"A dragon's cry splits the air as (bisque{characterName}) brings down (blue{skillName})",
		},
		StyleDesperate: {
			"Eyes bloodshot, (bisque{characterName}) grits teeth and forces out a self-destroying (blue{skillName})",
			"On the last thread of qi (bisque{characterName}) still manages (blue{skillName})",
			"Burning blood essence, (bisque{characterName}) squeezes out every drop of potential for (blue{skillName})",
			"Meridians torn, (bisque{characterName}) refuses to yield and hurls (blue{skillName})",
			"(bisque{characterName}) coughs blood and rides that surge into (blue{skillName})",
		},
	}

	damageTemplates = map[Severity][]string{
		SeverityLight: {
			"(bisque{targetName}) takes (red{damage} points) of damage",
			"(bisque{targetName}) barely holds and loses (red{damage} points)",
			"(bisque{targetName}) is grazed for (red{damage} points)",
			"(bisque{targetName}) stumbles and loses (red{damage} points) of life",
		},
		SeverityMedium: {
			"(bisque{targetName}) suffers (red{damage} points) of damage",
			"(bisque{targetName}) staggers back, losing (red{damage} points) of life",
			"(bisque{targetName}) is struck hard for (red{damage} points)",
			"(bisque{targetName}) is hit in a vital spot for (red{damage} points)",
		},
		SeverityHeavy: {
			"(bisque{targetName}) suffers a deadly (red{damage} points) of damage",
			"(bisque{targetName}) is gravely wounded for (red{damage} points)",
			"(bisque{targetName}) takes a crushing (red{damage} points)",
			"(bisque{targetName}) reels under a heavy blow of (red{damage} points)",
		},
	}

	endTemplates = map[string][]string{
		endVictory: {
			"The battle is over, and (bisque{winnerName}) wins with overwhelming strength",
			"The dust settles on the extraordinary strength of (bisque{winnerName})",
			"Victory is decided, (bisque{winnerName}) proves a step higher",
			"This contest ends with the triumph of (bisque{winnerName})",
		},
		endDraw: {
			"Both sides are spent and the battle ends in a draw",
			"After a fierce fight both sides reach their limit",
			"Neither side can fight on and the battle ends",
			"Evenly matched, the contest closes without a victor",
		},
	}

	weatherTemplates = map[string][]string{
		"clear": {
			"the sky is washed clean and spirit energy drifts in the sunlight",
			"warm light falls across the field",
		},
		"rain": {
			"a fine rain veils the battlefield in mist",
			"dark clouds gather and raindrops thud against the ground",
		},
	}

	timeOfDayTemplates = map[string][]string{
		"dawn": {
			"the first ray of morning pierces the clouds",
			"daybreak fills heaven and earth with a fresh breath",
		},
		"dusk": {
			"the setting sun stains the peaks crimson",
			"evening shadows stretch across the stones",
		},
	}
)
